// Package broker moves domain events through RabbitMQ so out-of-process
// consumers (CRM sync and the like) see them.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
)

// Forwarder publishes every event it is handed to a durable queue. The
// connection is opened lazily and re-opened after a failure.
type Forwarder struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewForwarder(url, queue string, log zerolog.Logger) *Forwarder {
	return &Forwarder{
		url:   url,
		queue: queue,
		log:   log.With().Str("component", "EventForwarder").Str("queue", queue).Logger(),
	}
}

// Subscribe forwards every bus event.
func (f *Forwarder) Subscribe(bus *events.Bus) {
	bus.SubscribeAll("amqp-forwarder", f.Handle)
}

func (f *Forwarder) Handle(ctx context.Context, e events.Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch, err := f.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", f.queue, false, false, msg); err != nil {
		f.reset()
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// channel returns the open channel, dialling when needed. f.mu is held.
func (f *Forwarder) channel() (*amqp.Channel, error) {
	if f.ch != nil && !f.ch.IsClosed() {
		return f.ch, nil
	}
	f.reset()

	conn, err := amqp.Dial(f.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, f.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	f.conn, f.ch = conn, ch
	f.log.Info().Msg("connected to broker")
	return ch, nil
}

func (f *Forwarder) reset() {
	if f.ch != nil {
		_ = f.ch.Close()
	}
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.conn, f.ch = nil, nil
}

func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
	return nil
}

func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

func encode(e events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", e.Type, err)
	}
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    ts.UTC(),
		Body:         body,
	}, nil
}

func decode(body []byte) (events.Event, error) {
	var e events.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return events.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return events.Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
