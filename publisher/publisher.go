package publisher

import "context"

// Entry is one integration event ready to be delivered to the event bus.
type Entry struct {
	Source       string // normalized aggregate tag (e.g. "outbox.car")
	DetailType   string // the event type (e.g. "CarCreated")
	Detail       []byte // JSON document embedding the event and its idempotency key
	Key          []byte // partition key, the aggregate identifier
	EventBusName string // target bus, taken from process-wide configuration
}

// EntryResult reports the delivery outcome of a single entry within a
// publish call.
type EntryResult struct {
	Code    string
	Message string
	Err     error
}

// Failed tells whether the entry was rejected by the bus.
func (r *EntryResult) Failed() bool {
	return r.Err != nil
}

// Result contains the per entry outcomes of one publish call.
type Result struct {
	Entries     []EntryResult
	FailedCount int
}

// Publisher defines the contract for event bus publishers. A single call
// must not carry more entries than the bus accepts per request; callers
// partition bigger lists themselves. Individual rejections are reported in
// the Result; only a failure to make the call at all is returned as an error.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) (*Result, error)
}
