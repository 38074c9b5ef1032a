package gorm

import (
	"database/sql"
	"time"

	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/google/uuid"
)

type vehicleRow struct {
	Id        uuid.UUID
	Make      string
	Model     string
	Year      int
	Color     sql.NullString
	CreatedAt time.Time
}

func (vehicleRow) TableName() string {
	return "vehicle"
}

type outboxRow struct {
	Id            uuid.UUID
	AggregateType string
	AggregateId   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

func (outboxRow) TableName() string {
	return "outbox"
}

func newVehicleRow(c *vehicle.Car) *vehicleRow {
	return &vehicleRow{
		Id:        c.Id,
		Make:      c.Make,
		Model:     c.Model,
		Year:      c.Year,
		Color:     sql.NullString{String: c.Color, Valid: c.Color != ""},
		CreatedAt: c.CreatedAt,
	}
}

func newOutboxRow(e *outbox.Event) *outboxRow {
	return &outboxRow{
		Id:            e.Id,
		AggregateType: e.AggregateType,
		AggregateId:   e.AggregateId,
		EventType:     e.EventType,
		Payload:       e.Payload,
		CreatedAt:     e.CreatedAt,
	}
}
