package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Type string

const (
	PaymentSettled        Type = "payment.settled"
	BookingPaid           Type = "booking.paid"
	BookingCheckedIn      Type = "booking.checked_in"
	BookingCancelled      Type = "booking.cancelled"
	CardActivated         Type = "card.activated"
	CardRefunded          Type = "card.refunded"
	CustomerPointsChanged Type = "customer.points_changed"
	CustomerBalanceChange Type = "customer.balance_changed"
)

// Event is a settled fact. Consumers must not assume delivery order across types.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	CustomerID string          `json:"customer_id,omitempty"`
	StoreID    string          `json:"store_id,omitempty"`
	BookingID  string          `json:"booking_id,omitempty"`
	CardID     string          `json:"card_id,omitempty"`
	PaymentID  string          `json:"payment_id,omitempty"`
	Gateway    string          `json:"gateway,omitempty"`
	Status     string          `json:"status,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Deposit    decimal.Decimal `json:"deposit"`
	Reward     decimal.Decimal `json:"reward"`
	Points     decimal.Decimal `json:"points"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Handler func(ctx context.Context, e Event) error

type subscription struct {
	name string
	h    Handler
}

// Bus fans events out to subscribers on their own goroutines. Handler
// errors and panics are logged, never returned to the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[Type][]subscription
	all  []subscription
	wg   sync.WaitGroup
	log  zerolog.Logger
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[Type][]subscription),
		log:  log.With().Str("component", "EventBus").Logger(),
	}
}

func (b *Bus) Subscribe(t Type, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], subscription{name: name, h: h})
}

// SubscribeAll receives every event type.
func (b *Bus) SubscribeAll(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, subscription{name: name, h: h})
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs[e.Type])+len(b.all))
	targets = append(targets, b.subs[e.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, s := range targets {
		b.wg.Add(1)
		go b.deliver(detached, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("subscriber", s.name).Str("event", string(e.Type)).Msg("event handler panicked")
		}
	}()
	if err := s.h(ctx, e); err != nil {
		b.log.Warn().Err(err).Str("subscriber", s.name).Str("event", string(e.Type)).Str("event_id", e.ID).Msg("event handler failed")
	}
}

// Wait blocks until in-flight deliveries finish.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
