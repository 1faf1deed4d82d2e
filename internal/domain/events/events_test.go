package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToTypedAndCatchAllSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var mu sync.Mutex
	got := map[string][]Type{}
	record := func(name string) Handler {
		return func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], e.Type)
			return nil
		}
	}

	bus.Subscribe(BookingPaid, "paid", record("paid"))
	bus.SubscribeAll("all", record("all"))

	bus.Publish(context.Background(), Event{Type: BookingPaid, BookingID: "b1"})
	bus.Publish(context.Background(), Event{Type: BookingCancelled, BookingID: "b1"})
	bus.Wait()

	assert.Equal(t, []Type{BookingPaid}, got["paid"])
	assert.ElementsMatch(t, []Type{BookingPaid, BookingCancelled}, got["all"])
}

func TestBusSwallowsHandlerFailures(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	calls := 0
	var mu sync.Mutex

	bus.Subscribe(CardActivated, "fails", func(context.Context, Event) error {
		return errors.New("crm down")
	})
	bus.Subscribe(CardActivated, "panics", func(context.Context, Event) error {
		panic("boom")
	})
	bus.Subscribe(CardActivated, "ok", func(context.Context, Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: CardActivated})
		bus.Wait()
	})
	assert.Equal(t, 1, calls)
}

func TestPublishFillsIdentity(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var seen Event
	bus.Subscribe(PaymentSettled, "capture", func(_ context.Context, e Event) error {
		seen = e
		return nil
	})

	bus.Publish(context.Background(), Event{Type: PaymentSettled})
	bus.Wait()

	assert.NotEmpty(t, seen.ID)
	assert.False(t, seen.OccurredAt.IsZero())
}
