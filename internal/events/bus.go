package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Topics emitted by the order-entry core.
const (
	TopicCatalogReloaded = "catalog.reloaded"
	TopicOrderSubmitted  = "order.submitted"
)

// Event is a domain occurrence fanned out to notifiers.
type Event struct {
	ID         uuid.UUID
	Topic      string
	OccurredAt time.Time
	Payload    any
}

// Notifier reacts to emitted events (e.g. logging, metrics).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans domain events out to downstream handlers. Notifier failures are
// joined and reported but never block the emitting operation.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
}

// Emit dispatches the event to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev := Event{
		ID:         uuid.New(),
		Topic:      topic,
		OccurredAt: now(),
		Payload:    payload,
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return ev, joined
}

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Time("occurred_at", event.OccurredAt).
		Interface("payload", event.Payload).
		Msg("domain_event")
	return nil
}
