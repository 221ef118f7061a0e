package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryBusDelivers(t *testing.T) {
	bus := NewMemoryBus()
	var got []BookingEvent
	_ = bus.Subscribe(BookingCreated, func(msg *Message) {
		var ev BookingEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, ev)
	})

	if err := bus.Publish(context.Background(), BookingCreated, BookingEvent{GroupID: "g1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = bus.Publish(context.Background(), BookingDeclined, BookingEvent{GroupID: "g2"})

	if len(got) != 1 || got[0].GroupID != "g1" {
		t.Fatalf("expected one created event, got %+v", got)
	}
}

func TestMemoryBusQueueDeliversOncePerQueue(t *testing.T) {
	bus := NewMemoryBus()
	calls := 0
	h := func(*Message) { calls++ }
	_ = bus.QueueSubscribe(BookingCreated, "notify", h)
	_ = bus.QueueSubscribe(BookingCreated, "notify", h)

	_ = bus.Publish(context.Background(), BookingCreated, BookingEvent{})
	if calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", calls)
	}
}
