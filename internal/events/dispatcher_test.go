package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherIsolatesHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "second")
		panic("nil map")
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "third")
		return nil
	})
	d.Subscribe(EventTicketReopened, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketClosed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 3 || calls[0] != "first" || calls[2] != "third" {
		t.Errorf("calls = %v", calls)
	}
}
