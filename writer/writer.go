package writer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/metrics"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/google/uuid"
)

const (
	aggregateType    = "Car"
	eventTypeCreated = "CarCreated"
)

// Writer couples a domain mutation with its outbox event in one transaction.
// It never talks to any messaging system: the change capture pipeline picks
// the event up from the outbox table after commit.
type Writer struct {
	repo       repository.Repository
	logger     logger.Logger
	successCtr metrics.Counter
	errorCtr   metrics.Counter
}

// opt allows optional configuration.
type opt func(w *Writer)

// WithLogger allows clients to configure an optional logger.
func WithLogger(l logger.Logger) opt {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCounters allows clients to configure optional counters
// for observability.
func WithCounters(success metrics.Counter, error metrics.Counter) opt {
	return func(w *Writer) {
		if success != nil {
			w.successCtr = success
		}
		if error != nil {
			w.errorCtr = error
		}
	}
}

// New creates a Writer using the provided Repository implementation.
func New(r repository.Repository, options ...opt) *Writer {
	if r == nil {
		panic("you must provide a repository")
	}

	w := &Writer{
		repo:       r,
		logger:     &logger.NopLogger{},
		successCtr: &metrics.NopCounter{},
		errorCtr:   &metrics.NopCounter{},
	}

	for _, o := range options {
		o(w)
	}

	if l, ok := r.(logger.Loggable); ok {
		l.SetLogger(w.logger)
	}

	return w
}

// CreateWithEvent validates the input and persists the car together with its
// 'CarCreated' outbox event in a single transaction. A validation failure is
// returned before any transaction is opened; a persistence failure rolls the
// whole transaction back, so no event is ever visible without its car.
func (w *Writer) CreateWithEvent(ctx context.Context, input vehicle.CreateCarInput) (*vehicle.Car, *outbox.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	car := vehicle.New(input)
	payload, err := json.Marshal(car)
	if err != nil {
		return nil, nil, fmt.Errorf("could not marshal the event payload: %w", err)
	}

	event := &outbox.Event{
		Id:            uuid.New(),
		AggregateType: aggregateType,
		AggregateId:   car.Id.String(),
		EventType:     eventTypeCreated,
		Payload:       payload,
		CreatedAt:     car.CreatedAt,
	}

	if err := w.repo.CreateWithEvent(ctx, car, event); err != nil {
		w.errorCtr.Inc(1)
		w.logger.Error("creating the vehicle with its outbox event", err)
		return nil, nil, err
	}

	w.successCtr.Inc(1)
	w.logger.Debug(fmt.Sprintf("vehicle '%s' created with outbox event '%s'", car.Id, event.Id))
	return car, event, nil
}
