package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/platform/mailer"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
	done chan struct{}
}

func newFakeMailer() *fakeMailer { return &fakeMailer{done: make(chan struct{}, 16)} }

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.done <- struct{}{}
	return "id-1", m.err
}

func (m *fakeMailer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email")
	}
}

func event() events.BookingEvent {
	return events.BookingEvent{
		GroupID:         "g1",
		BookingNumber:   "HY250105-ABC123",
		CustomerName:    "Omar",
		Phone:           "+201000000000",
		Dates:           []string{"2025-01-05"},
		Slots:           []string{"18:00", "18:30"},
		DurationMinutes: 60,
		Status:          "pending",
		TotalPrice:      200,
	}
}

func TestNotifierEmailsAdminOnBookingEvents(t *testing.T) {
	bus := events.NewMemoryBus()
	m := newFakeMailer()
	n := New(m, "admin@example.com")
	if err := n.Subscribe(bus); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	_ = bus.Publish(ctx, events.BookingCreated, event())
	m.wait(t)
	_ = bus.Publish(ctx, events.BookingConfirmed, event())
	m.wait(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(m.sent))
	}
	if m.sent[0].ToEmail != "admin@example.com" || !strings.HasPrefix(m.sent[0].Subject, "New booking") {
		t.Fatalf("unexpected first email %+v", m.sent[0])
	}
	if !strings.Contains(m.sent[1].Subject, "confirmed") {
		t.Fatalf("unexpected second email %+v", m.sent[1])
	}
}

func TestNotifierIgnoresDeletesAndMissingAdmin(t *testing.T) {
	bus := events.NewMemoryBus()
	m := newFakeMailer()
	n := New(m, "admin@example.com")
	_ = n.Subscribe(bus)
	_ = bus.Publish(context.Background(), events.BookingDeleted, event())
	if len(n.queue) != 0 {
		t.Fatal("expected delete events to be ignored")
	}

	silent := New(m, "")
	_ = silent.Subscribe(events.NewMemoryBus())
	silent.handle(&events.Message{Subject: events.BookingCreated, Data: []byte(`{}`)})
	if len(silent.queue) != 0 {
		t.Fatal("expected nothing queued without an admin address")
	}
}

func TestNotifierKeepsRunningAfterSendError(t *testing.T) {
	bus := events.NewMemoryBus()
	m := newFakeMailer()
	m.err = errors.New("provider down")
	n := New(m, "admin@example.com")
	_ = n.Subscribe(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	_ = bus.Publish(ctx, events.BookingExpired, event())
	m.wait(t)
	_ = bus.Publish(ctx, events.BookingDeclined, event())
	m.wait(t)
}

func TestRenderIncludesBookingDetails(t *testing.T) {
	msg := Render(events.BookingCreated, event())
	for _, want := range []string{"HY250105-ABC123", "Omar", "18:00, 18:30", "200.00"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("expected %q in body:\n%s", want, msg.Text)
		}
	}
}
