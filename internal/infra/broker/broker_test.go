package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := events.Event{
		ID:         "e1",
		Type:       events.BookingPaid,
		OccurredAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		BookingID:  "b1",
		Amount:     decimal.RequireFromString("198.50"),
	}
	msg, err := encode(e)
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "e1", msg.MessageId)
	assert.Equal(t, "booking.paid", msg.Type)

	got, err := decode(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, e.BookingID, got.BookingID)
	assert.True(t, got.Amount.Equal(e.Amount))

	_, err = decode([]byte(`{"booking_id":"b1"}`))
	assert.Error(t, err)
}

func TestConsumerAcksHandledMessages(t *testing.T) {
	var got []events.Event
	c := NewConsumer("", "q", func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	}, zerolog.Nop())

	msg, err := encode(events.Event{ID: "e1", Type: events.CardActivated, CardID: "c1"})
	require.NoError(t, err)
	ack := &ackRecorder{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: msg.Body})

	assert.Equal(t, 1, ack.acked)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].CardID)
}

func TestConsumerRequeuesOnce(t *testing.T) {
	c := NewConsumer("", "q", func(context.Context, events.Event) error {
		return errors.New("crm down")
	}, zerolog.Nop())
	msg, err := encode(events.Event{Type: events.CustomerPointsChanged})
	require.NoError(t, err)

	first := &ackRecorder{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: first, Body: msg.Body})
	assert.Equal(t, 1, first.nacked)
	assert.True(t, first.requeue)

	again := &ackRecorder{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: again, Body: msg.Body, Redelivered: true})
	assert.Equal(t, 1, again.nacked)
	assert.False(t, again.requeue)
}

func TestConsumerDropsMalformedMessages(t *testing.T) {
	called := false
	c := NewConsumer("", "q", func(context.Context, events.Event) error {
		called = true
		return nil
	}, zerolog.Nop())

	ack := &ackRecorder{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})
	assert.False(t, called)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}
