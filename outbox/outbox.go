package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event is one row of the append-only 'outbox' table. It records a fact that
// occurred on an aggregate and is written in the same transaction as the
// aggregate mutation itself. The writer path never updates or deletes rows;
// ProcessedAt is reserved for an external cleanup process.
type Event struct {
	Id            uuid.UUID  // idempotency key for downstream consumers
	AggregateType string     // the aggregate type (e.g. "Car")
	AggregateId   string     // the aggregate identifier
	EventType     string     // the event type (e.g. "CarCreated")
	Payload       []byte     // event payload as a JSON document
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}
