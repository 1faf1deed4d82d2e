package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
)

const maxBackoff = 30 * time.Second

// Consumer feeds queued events to a handler.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handler  events.Handler
	log      zerolog.Logger
}

func NewConsumer(url, queue string, handler events.Handler, log zerolog.Logger) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		prefetch: 50,
		handler:  handler,
		log:      log.With().Str("component", "EventConsumer").Str("queue", queue).Logger(),
	}
}

// Run consumes until ctx is done, reconnecting with backoff when the
// broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("consumer disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set qos failed")
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.log.Info().Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks processed messages. Undecodable messages are dropped; a
// failed handler gets one redelivery.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	e, err := decode(d.Body)
	if err != nil {
		c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("dropping malformed message")
		_ = d.Nack(false, false)
		return
	}
	if err := c.handler(ctx, e); err != nil {
		requeue := !d.Redelivered
		c.log.Warn().Err(err).Str("event", string(e.Type)).Str("event_id", e.ID).Bool("requeue", requeue).Msg("handler failed")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
