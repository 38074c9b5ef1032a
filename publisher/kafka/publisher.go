package kafka

import (
	"context"
	"fmt"
	"reflect"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/publisher"
	"github.com/iancoleman/strcase"
)

// kafkaProducer is a helper interface to work with kafka.Producer.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

type Publisher struct {
	producer kafkaProducer
	logger   logger.Logger
}

var _ publisher.Publisher = (*Publisher)(nil)
var _ logger.Loggable = (*Publisher)(nil)

func New(p kafkaProducer) *Publisher {
	if p == nil || reflect.ValueOf(p).IsNil() {
		panic("producer is mandatory")
	}
	return &Publisher{
		producer: p,
		logger:   &logger.NopLogger{},
	}
}

func (p *Publisher) SetLogger(l logger.Logger) {
	p.logger = l
}

// Publish submits every entry to the bus and waits for all the delivery
// reports. Rejected entries are collected in the result; an error is only
// returned when the call itself cannot be made.
func (p *Publisher) Publish(ctx context.Context, entries []publisher.Entry) (*publisher.Result, error) {
	result := &publisher.Result{Entries: make([]publisher.EntryResult, len(entries))}
	deliveryChan := make(chan kafka.Event, len(entries))

	for i, e := range entries {
		topic := buildTopicName(e.EventBusName, e.DetailType)
		err := p.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            e.Key,
			Value:          e.Detail,
			Opaque:         i,
			Headers: []kafka.Header{
				{Key: "source", Value: []byte(e.Source)},
				{Key: "detailType", Value: []byte(e.DetailType)},
			},
		}, deliveryChan)
		if err != nil {
			return nil, fmt.Errorf("could not submit the publish call: %w", err)
		}
	}

	remaining := len(entries)
	for remaining > 0 {
		select {
		case ev := <-deliveryChan:
			m, ok := ev.(*kafka.Message)
			if !ok {
				p.logger.Debug(fmt.Sprintf("ignored event: %s", ev))
				continue
			}
			remaining--
			i, ok := m.Opaque.(int)
			if !ok || i < 0 || i >= len(entries) {
				continue
			}
			if err := m.TopicPartition.Error; err != nil {
				er := publisher.EntryResult{Message: err.Error(), Err: err}
				if kerr, ok := err.(kafka.Error); ok {
					er.Code = kerr.Code().String()
				}
				result.Entries[i] = er
				result.FailedCount++
			} else {
				p.logger.Debug(fmt.Sprintf("delivered entry to topic %s [%d] at offset %v",
					*m.TopicPartition.Topic, m.TopicPartition.Partition, m.TopicPartition.Offset))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return result, nil
}

// buildTopicName builds a topic name from the bus name and a detail type
// (e.g. if busName="outbox" and detailType="CarCreated" then topic name is
// "outbox-car-created").
func buildTopicName(busName string, detailType string) string {
	return fmt.Sprintf("%s-%s", busName, strcase.ToKebab(detailType))
}
