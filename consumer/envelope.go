package consumer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	recordTypeData  = "data"
	operationInsert = "insert"
)

// envelope is the untrusted change capture record delivered by the external
// transport. It describes one row level change observed on a table and may
// arrive duplicated, delayed or out of order across partitions.
type envelope struct {
	Metadata metadata `json:"metadata"`
	Data     row      `json:"data"`
}

type metadata struct {
	RecordType string `json:"record-type"`
	Operation  string `json:"operation"`
	TableName  string `json:"table-name"`
}

// row carries a copy of the captured outbox columns at the time of change.
type row struct {
	Id            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateId   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     string          `json:"created_at"`
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("could not decode the change record: %w", err)
	}
	return &e, nil
}

// qualifies tells whether the record is a row insert on the outbox table.
// Updates, deletes, control records and changes on other tables are skipped,
// even though an append-only outbox should only ever produce inserts.
func (e *envelope) qualifies(outboxTable string) bool {
	return e.Metadata.RecordType == recordTypeData &&
		e.Metadata.Operation == operationInsert &&
		e.Metadata.TableName == outboxTable
}

// eventData resolves the captured payload: 'event_data' wins over 'payload'
// and an empty document is used when neither is present.
func (r *row) eventData() json.RawMessage {
	if v := presentDoc(r.EventData); v != nil {
		return v
	}
	if v := presentDoc(r.Payload); v != nil {
		return v
	}
	return json.RawMessage("{}")
}

func presentDoc(v json.RawMessage) json.RawMessage {
	if len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	return v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// timestamp parses the captured creation time. The capture transport is not
// consistent about the format, so a few layouts are attempted.
func (r *row) timestamp() (time.Time, bool) {
	if r.CreatedAt == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
