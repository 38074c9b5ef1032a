package consumer

const (
	// maxEntriesPerPublishLimit is the hard per call entry limit imposed by
	// the event bus.
	maxEntriesPerPublishLimit int = 10

	defaultEventBusName string = "outbox"
	defaultOutboxTable  string = "outbox"
)

// Settings holds the change capture consumer configuration.
type Settings struct {
	EventBusName         string // target bus identifier stamped on every published event
	OutboxTable          string // source table whose row inserts qualify for publishing
	MaxEntriesPerPublish int    // maximum entries per publish call, capped at the bus limit
}

// validateSettings validates the stablished settings and sets defaults if needed.
func validateSettings(s *Settings) {
	if s.EventBusName == "" {
		s.EventBusName = defaultEventBusName
	}
	if s.OutboxTable == "" {
		s.OutboxTable = defaultOutboxTable
	}
	if s.MaxEntriesPerPublish <= 0 || s.MaxEntriesPerPublish > maxEntriesPerPublishLimit {
		s.MaxEntriesPerPublish = maxEntriesPerPublishLimit
	}
}
