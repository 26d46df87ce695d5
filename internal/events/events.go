// Package events carries reservation and balance notifications to side
// channels (Kafka, kitchen screens, metrics). Publishing happens after the
// database transaction commits and never affects the outcome of a request.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is the JSON payload published for every committed state change.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	UserID        int32     `json:"user_id"`
	CafeteriaID   int32     `json:"cafeteria_id,omitempty"`
	ReservationID int32     `json:"reservation_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
	Items         []Item    `json:"items,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Item is one order line as shown on a kitchen screen.
type Item struct {
	DishID     int32 `json:"dish_id"`
	Quantity   int32 `json:"quantity"`
	IsTakeaway bool  `json:"is_takeaway"`
}

// New returns an event of the given type with a fresh ID and timestamp.
func New(eventType string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
