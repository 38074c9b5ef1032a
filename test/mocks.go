package test

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/publisher"
	"github.com/dgonzalezf/cdcbox/vehicle"
	tally "github.com/uber-go/tally/v4"
)

type MockedTallyCounter struct {
	Ctr    int64
	Output chan int64
}

var _ tally.Counter = (*MockedTallyCounter)(nil)

func (c *MockedTallyCounter) Inc(delta int64) {
	c.Ctr += delta
	c.Output <- c.Ctr
}

// MockedKafkaProducer mimics a kafka.Producer: every produced message is
// echoed through Snitch for assertions and a delivery report is sent back on
// the delivery channel, failed for the keys listed in FailKeys.
type MockedKafkaProducer struct {
	Snitch   chan *kafka.Message
	RetVal   error
	FailKeys map[string]kafka.ErrorCode
}

func (p *MockedKafkaProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if p.RetVal != nil {
		return p.RetVal
	}
	if p.Snitch != nil {
		p.Snitch <- msg
	}

	report := *msg
	if code, ok := p.FailKeys[string(msg.Key)]; ok {
		report.TopicPartition.Error = kafka.NewError(code, code.String(), false)
	}
	deliveryChan <- &report

	return nil
}

// MockedRepository records the pairs it was asked to persist.
type MockedRepository struct {
	Cars   []*vehicle.Car
	Events []*outbox.Event
	RetVal error
}

func (r *MockedRepository) CreateWithEvent(_ context.Context, c *vehicle.Car, e *outbox.Event) error {
	if r.RetVal != nil {
		return r.RetVal
	}
	r.Cars = append(r.Cars, c)
	r.Events = append(r.Events, e)
	return nil
}

// MockedPublisher records every publish call and rejects the entries whose
// partition key is listed in FailKeys.
type MockedPublisher struct {
	Calls    [][]publisher.Entry
	RetVal   error
	FailKeys map[string]error
}

func (p *MockedPublisher) Publish(_ context.Context, entries []publisher.Entry) (*publisher.Result, error) {
	p.Calls = append(p.Calls, entries)
	if p.RetVal != nil {
		return nil, p.RetVal
	}

	result := &publisher.Result{Entries: make([]publisher.EntryResult, len(entries))}
	for i, e := range entries {
		if err, ok := p.FailKeys[string(e.Key)]; ok {
			result.Entries[i] = publisher.EntryResult{Code: "InternalFailure", Message: err.Error(), Err: err}
			result.FailedCount++
		}
	}
	return result, nil
}
