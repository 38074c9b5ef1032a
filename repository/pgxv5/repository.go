package pgxv5

import (
	"context"
	"reflect"

	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/jackc/pgx/v5"
)

const (
	insertVehicleSql = "INSERT INTO vehicle (id, make, model, year, color, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	insertOutboxSql  = "INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
)

// dbpool is a helper interface to work with pgxpool.Pool.
type dbpool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db     dbpool
	logger logger.Logger
}

var _ logger.Loggable = (*Repository)(nil)
var _ repository.Repository = (*Repository)(nil)

func New(pool dbpool) *Repository {
	if pool == nil || reflect.ValueOf(pool).IsNil() {
		panic("pool is mandatory")
	}
	return &Repository{
		db:     pool,
		logger: &logger.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (r *Repository) SetLogger(l logger.Logger) {
	r.logger = l
}

// CreateWithEvent inserts the car and its outbox event atomically. The
// transaction is rolled back on any failure, so an external observer can
// never see one row without the other.
func (r *Repository) CreateWithEvent(ctx context.Context, c *vehicle.Car, e *outbox.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &repository.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, insertVehicleSql, c.Id, c.Make, c.Model, c.Year, nullable(c.Color), c.CreatedAt); err != nil {
		return &repository.PersistenceError{Op: "insert vehicle", Err: err}
	}
	if _, err := tx.Exec(ctx, insertOutboxSql, e.Id, e.AggregateType, e.AggregateId, e.EventType, e.Payload, e.CreatedAt); err != nil {
		return &repository.PersistenceError{Op: "insert outbox", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &repository.PersistenceError{Op: "commit", Err: err}
	}

	r.logger.Debug("vehicle and outbox event inserted in one transaction")
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
