package sql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/vehicle"
)

var (
	insertVehicleSql = "INSERT INTO vehicle (id, make, model, year, color, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	insertOutboxSql  = "INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)"
)

type Repository struct {
	db        *sql.DB
	useDollar bool
	logger    logger.Logger
}

var _ logger.Loggable = (*Repository)(nil)
var _ repository.Repository = (*Repository)(nil)

// New creates a Repository on top of a standard database/sql handle. Set
// useDollar when the driver expects positional '$n' placeholders (Postgres).
func New(db *sql.DB, useDollar bool) *Repository {
	if db == nil {
		panic("db is mandatory")
	}
	return &Repository{
		db:        db,
		useDollar: useDollar,
		logger:    &logger.NopLogger{},
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
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &repository.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, r.stmt(insertVehicleSql), c.Id, c.Make, c.Model, c.Year, nullable(c.Color), c.CreatedAt); err != nil {
		return &repository.PersistenceError{Op: "insert vehicle", Err: err}
	}
	if _, err := tx.ExecContext(ctx, r.stmt(insertOutboxSql), e.Id, e.AggregateType, e.AggregateId, e.EventType, e.Payload, e.CreatedAt); err != nil {
		return &repository.PersistenceError{Op: "insert outbox", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &repository.PersistenceError{Op: "commit", Err: err}
	}

	r.logger.Debug("vehicle and outbox event inserted in one transaction")
	return nil
}

// stmt rewrites '?' placeholders to '$n' when the underlying driver needs it.
func (r *Repository) stmt(query string) string {
	if !r.useDollar {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
		} else {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
