package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/metrics"
	"github.com/dgonzalezf/cdcbox/publisher"
)

// Report summarizes one ProcessBatch invocation.
type Report struct {
	Received  int // raw records delivered by the transport
	Skipped   int // records dropped during decode, filter or mapping
	Published int // entries accepted by the bus
	Failed    int // entries rejected by the bus
}

// Consumer turns batches of raw change capture records into integration
// events on the bus. It keeps no state between invocations: the transport
// may redeliver batches and downstream consumers deduplicate on the event id.
type Consumer struct {
	settings     Settings
	publisher    publisher.Publisher
	logger       logger.Logger
	publishedCtr metrics.Counter
	failedCtr    metrics.Counter
}

// opt allows optional configuration.
type opt func(c *Consumer)

// WithLogger allows clients to configure an optional logger.
func WithLogger(l logger.Logger) opt {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCounters allows clients to configure optional counters
// for observability.
func WithCounters(published metrics.Counter, failed metrics.Counter) opt {
	return func(c *Consumer) {
		if published != nil {
			c.publishedCtr = published
		}
		if failed != nil {
			c.failedCtr = failed
		}
	}
}

// New creates a Consumer using the provided settings and options and the
// provided Publisher implementation.
func New(s Settings, p publisher.Publisher, options ...opt) *Consumer {
	if p == nil {
		panic("you must provide a publisher")
	}

	validateSettings(&s)

	c := &Consumer{
		settings:     s,
		publisher:    p,
		logger:       &logger.NopLogger{},
		publishedCtr: &metrics.NopCounter{},
		failedCtr:    &metrics.NopCounter{},
	}

	for _, o := range options {
		o(c)
	}

	if l, ok := p.(logger.Loggable); ok {
		l.SetLogger(c.logger)
	}

	return c
}

// ProcessBatch decodes, filters and maps the raw records in the order they
// were delivered, then publishes the resulting events in calls bounded by
// the bus entry limit. A record that cannot be decoded or mapped is logged
// and skipped; rejected entries are logged and counted. Only a publish call
// that cannot be made at all is returned as an error, so the transport can
// redeliver the whole batch.
func (c *Consumer) ProcessBatch(ctx context.Context, rawRecords [][]byte) (*Report, error) {
	report := &Report{Received: len(rawRecords)}

	var entries []publisher.Entry
	for _, raw := range rawRecords {
		env, err := decodeEnvelope(raw)
		if err != nil {
			c.logger.Error("skipping an undecodable change record", err)
			report.Skipped++
			continue
		}
		if !env.qualifies(c.settings.OutboxTable) {
			report.Skipped++
			continue
		}
		entry, err := c.mapRecord(&env.Data)
		if err != nil {
			c.logger.Error("skipping an unmappable change record", err)
			report.Skipped++
			continue
		}
		entries = append(entries, *entry)
	}

	for i := 0; i < len(entries); i += c.settings.MaxEntriesPerPublish {
		end := i + c.settings.MaxEntriesPerPublish
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[i:end]

		result, err := c.publisher.Publish(ctx, batch)
		if err != nil {
			return report, fmt.Errorf("the publish call could not be made: %w", err)
		}
		for j := range result.Entries {
			er := &result.Entries[j]
			if er.Failed() {
				report.Failed++
				c.failedCtr.Inc(1)
				c.logger.Error(fmt.Sprintf("entry rejected by the bus (code=%s, source=%s, detailType=%s, detail=%s)",
					er.Code, batch[j].Source, batch[j].DetailType, batch[j].Detail), er.Err)
			} else {
				report.Published++
				c.publishedCtr.Inc(1)
			}
		}
	}

	return report, nil
}

// detail is the outward facing event document. EventId is the outbox row
// identifier and serves as the idempotency key on redeliveries.
type detail struct {
	AggregateId   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventId       string          `json:"eventId"`
	EventData     json.RawMessage `json:"eventData"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (c *Consumer) mapRecord(r *row) (*publisher.Entry, error) {
	if r.Id == "" {
		return nil, errors.New("the captured row has no id")
	}
	if r.AggregateType == "" {
		return nil, errors.New("the captured row has no aggregate_type")
	}

	ts, ok := r.timestamp()
	if !ok {
		// The capture transport dropped or mangled created_at; stamping the
		// consumption time skews delayed redeliveries.
		ts = time.Now().UTC()
	}

	body, err := json.Marshal(detail{
		AggregateId:   r.AggregateId,
		AggregateType: r.AggregateType,
		EventId:       r.Id,
		EventData:     r.eventData(),
		Timestamp:     ts,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal the event detail: %w", err)
	}

	return &publisher.Entry{
		Source:       "outbox." + strings.ToLower(r.AggregateType),
		DetailType:   r.EventType,
		Detail:       body,
		Key:          []byte(r.AggregateId),
		EventBusName: c.settings.EventBusName,
	}, nil
}
