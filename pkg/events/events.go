package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

// Ready reports whether the connection is usable, for the readiness check.
func (n *NATSEventBus) Ready(context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats status %s", n.conn.Status())
	}
	return nil
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
	return nil
}

func toMessage(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

// MemoryBus delivers events in process. It is used when NATS is not
// configured and in tests. Queue groups deliver each message once per queue.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(msg *Message)
	queues   map[string]bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]func(msg *Message)), queues: make(map[string]bool)}
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	b.mu.RLock()
	handlers := append([]func(msg *Message){}, b.handlers[subject]...)
	b.mu.RUnlock()

	msg := &Message{Subject: subject, Data: payload, Timestamp: time.Now(), ID: fmt.Sprintf("%d", time.Now().UnixNano())}
	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *MemoryBus) Subscribe(subject string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

// QueueSubscribe registers only the first handler per (subject, queue).
func (b *MemoryBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := subject + "|" + queue
	if b.queues[key] {
		return nil
	}
	b.queues[key] = true
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// Event types and subjects
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingDeclined  = "booking.declined"
	BookingExpired   = "booking.expired"
	BookingDeleted   = "booking.deleted"
	SettingsUpdated  = "settings.updated"
)

// BookingEvent is the payload for every booking subject.
type BookingEvent struct {
	GroupID         string    `json:"group_id"`
	BookingNumber   string    `json:"booking_number"`
	CustomerName    string    `json:"customer_name"`
	Phone           string    `json:"phone"`
	Dates           []string  `json:"dates"`
	Slots           []string  `json:"slots"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	TotalPrice      float64   `json:"total_price"`
	RowID           string    `json:"row_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type SettingsUpdatedEvent struct {
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}
