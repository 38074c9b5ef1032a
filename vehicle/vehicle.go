package vehicle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const minYear = 1900

// Car is the domain entity managed by the outbox writer. The identifier is
// generated on creation and never changes afterwards.
type Car struct {
	Id        uuid.UUID `json:"id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateCarInput contains the client supplied attributes to create a Car.
type CreateCarInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color"`
}

// ValidationError reports a client supplied field that is missing or out of
// range. It is never retried: the same input always fails the same way.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field '%s': %s", e.Field, e.Reason)
}

// Validate checks the input before any transaction is opened. The year upper
// bound admits next year's models.
func (i *CreateCarInput) Validate() error {
	if i.Make == "" {
		return &ValidationError{Field: "make", Reason: "is required"}
	}
	if i.Model == "" {
		return &ValidationError{Field: "model", Reason: "is required"}
	}
	maxYear := time.Now().Year() + 1
	if i.Year < minYear || i.Year > maxYear {
		return &ValidationError{
			Field:  "year",
			Reason: fmt.Sprintf("must be between %d and %d", minYear, maxYear),
		}
	}
	return nil
}

// New builds a Car from a validated input, assigning the generated
// identifier and the creation timestamp.
func New(i CreateCarInput) *Car {
	return &Car{
		Id:        uuid.New(),
		Make:      i.Make,
		Model:     i.Model,
		Year:      i.Year,
		Color:     i.Color,
		CreatedAt: time.Now().UTC(),
	}
}
