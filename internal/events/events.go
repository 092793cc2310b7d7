// Package events publishes donation lifecycle events. Publishing is best
// effort: callers persist first and only log publish failures.
package events

import (
	"context"
	"time"

	"bloodlink/internal/metrics"

	"github.com/google/uuid"
)

// Donation event types
const (
	DonationCreated = "donation.created"
	DonationUpdated = "donation.updated"
	DonationDeleted = "donation.deleted"
)

// Event is the JSON document written to the donation events topic
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	DonationID string    `json:"donationId"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// New builds an event with a fresh id and the current time
func New(eventType, donationID, actorID string, data any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		DonationID: donationID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher hands events to the event stream
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher discards every event. It is used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing
func (NopPublisher) Close() {}

type instrumented struct {
	Publisher
	metrics *metrics.Metrics
}

// Instrumented records the outcome of every publish on m
func Instrumented(p Publisher, m *metrics.Metrics) Publisher {
	return &instrumented{Publisher: p, metrics: m}
}

func (i *instrumented) Publish(ctx context.Context, event Event) error {
	err := i.Publisher.Publish(ctx, event)
	i.metrics.EventPublished(event.Type, err)
	return err
}
