package repository

import (
	"context"
	"fmt"

	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/vehicle"
)

// PersistenceError wraps any storage failure during the dual insert. The
// whole transaction is rolled back before this is returned, so callers may
// safely retry the request: no event was made visible on failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Repository persists a domain entity together with its outbox event. This
// interface is the only one the writer needs to interact with the storage.
type Repository interface {

	// CreateWithEvent inserts the car and its outbox event within a single
	// transaction. Either both rows become durable at commit or neither
	// does; no partial write is ever observable outside the transaction.
	CreateWithEvent(ctx context.Context, c *vehicle.Car, e *outbox.Event) error
}
