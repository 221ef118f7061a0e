package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/platform/mailer"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

const queueName = "notify"

var subjects = []string{
	events.BookingCreated,
	events.BookingConfirmed,
	events.BookingDeclined,
	events.BookingExpired,
}

// Notifier emails the administrator about booking events. Sending happens
// on its own goroutine so a slow provider never holds up the publisher.
type Notifier struct {
	mail    mailer.Service
	adminTo string
	queue   chan mailer.Message
}

func New(mail mailer.Service, adminEmail string) *Notifier {
	return &Notifier{mail: mail, adminTo: adminEmail, queue: make(chan mailer.Message, 64)}
}

// Subscribe joins the notify queue group on every booking subject.
func (n *Notifier) Subscribe(bus events.Subscriber) error {
	for _, s := range subjects {
		if err := bus.QueueSubscribe(s, queueName, n.handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	return nil
}

// Run sends queued messages until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			id, err := n.mail.Send(ctx, msg)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to send notification", "subject", msg.Subject, "error", err)
				continue
			}
			logger.DebugContext(ctx, "Notification sent", "subject", msg.Subject, "message_id", id)
		}
	}
}

func (n *Notifier) handle(msg *events.Message) {
	if n.adminTo == "" {
		return
	}
	var ev events.BookingEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Bad booking event payload", "subject", msg.Subject, "error", err)
		return
	}
	out := Render(msg.Subject, ev)
	out.ToEmail = n.adminTo
	out.ToName = "Admin"

	select {
	case n.queue <- out:
	default:
		logger.Warn("Notification queue full, dropping message", "subject", msg.Subject, "booking_number", ev.BookingNumber)
	}
}

// Render builds the admin email for one booking event.
func Render(subject string, ev events.BookingEvent) mailer.Message {
	var verb string
	switch subject {
	case events.BookingCreated:
		verb = "New booking"
	case events.BookingConfirmed:
		verb = "Booking confirmed"
	case events.BookingDeclined:
		verb = "Booking declined"
	case events.BookingExpired:
		verb = "Booking expired"
	default:
		verb = "Booking update"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", verb, ev.BookingNumber)
	fmt.Fprintf(&b, "Customer: %s (%s)\n", ev.CustomerName, ev.Phone)
	fmt.Fprintf(&b, "Dates: %s\n", strings.Join(ev.Dates, ", "))
	fmt.Fprintf(&b, "Slots: %s\n", strings.Join(ev.Slots, ", "))
	fmt.Fprintf(&b, "Duration: %d minutes\n", ev.DurationMinutes)
	fmt.Fprintf(&b, "Total: %.2f\n", ev.TotalPrice)
	fmt.Fprintf(&b, "Status: %s\n", ev.Status)

	return mailer.Message{
		Subject: fmt.Sprintf("%s: %s", verb, ev.BookingNumber),
		Text:    b.String(),
	}
}
