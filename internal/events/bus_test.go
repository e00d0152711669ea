package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestEmitFansOut(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	fixed := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	bus := &Bus{Notifiers: []Notifier{first, second}, Now: func() time.Time { return fixed }}

	ev, err := bus.Emit(context.Background(), TopicOrderSubmitted, map[string]string{"orderNumber": "123"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.Topic != TopicOrderSubmitted {
		t.Fatalf("unexpected topic %q", ev.Topic)
	}
	if !ev.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected time %v", ev.OccurredAt)
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both notifiers invoked, got %d and %d", len(first.events), len(second.events))
	}
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("boom")}
	ok := &recordingNotifier{}
	bus := &Bus{Notifiers: []Notifier{failing, ok}}

	_, err := bus.Emit(context.Background(), TopicCatalogReloaded, nil)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.events) != 1 {
		t.Fatal("expected later notifiers to still run")
	}
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := &Bus{}
	if _, err := bus.Emit(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
}
