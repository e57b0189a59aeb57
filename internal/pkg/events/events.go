// Package events publishes domain events after state changes commit.
package events

import (
	"context"
	"time"
)

const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCheckedIn = "booking.checked_in"
	BookingDeleted   = "booking.deleted"
	BookingConfirmed = "booking.confirmed"

	PaymentCreated   = "payment.created"
	PaymentInvoiced  = "payment.invoiced"
	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
	PaymentCancelled = "payment.cancelled"

	ReviewCreated = "review.created"
	ReviewUpdated = "review.updated"
	ReviewDeleted = "review.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(eventType, key string, payload any) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

var _ Publisher = Noop{}
