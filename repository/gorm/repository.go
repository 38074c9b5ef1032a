package gorm

import (
	"context"

	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger logger.Logger
}

var _ logger.Loggable = (*Repository)(nil)
var _ repository.Repository = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	if db == nil {
		panic("db is mandatory")
	}
	return &Repository{
		db:     db,
		logger: &logger.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (r *Repository) SetLogger(l logger.Logger) {
	r.logger = l
}

// CreateWithEvent inserts the car and its outbox event atomically. Gorm
// rolls the transaction back when the callback returns an error, so an
// external observer can never see one row without the other.
func (r *Repository) CreateWithEvent(ctx context.Context, c *vehicle.Car, e *outbox.Event) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newVehicleRow(c)).Error; err != nil {
			return &repository.PersistenceError{Op: "insert vehicle", Err: err}
		}
		if err := tx.Create(newOutboxRow(e)).Error; err != nil {
			return &repository.PersistenceError{Op: "insert outbox", Err: err}
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*repository.PersistenceError); ok {
			return err
		}
		return &repository.PersistenceError{Op: "commit", Err: err}
	}

	r.logger.Debug("vehicle and outbox event inserted in one transaction")
	return nil
}
