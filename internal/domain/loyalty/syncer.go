package loyalty

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
)

// Syncer mirrors points and balance changes into the external CRM.
type Syncer interface {
	SyncPoints(ctx context.Context, customerID string, delta decimal.Decimal) error
	SyncBalance(ctx context.Context, customerID string, deposit, reward decimal.Decimal) error
}

// LogSyncer records the changes it would send. It is used until a CRM is
// configured.
type LogSyncer struct {
	log zerolog.Logger
}

func NewLogSyncer(log zerolog.Logger) *LogSyncer {
	return &LogSyncer{log: log.With().Str("component", "LoyaltySync").Logger()}
}

func (s *LogSyncer) SyncPoints(_ context.Context, customerID string, delta decimal.Decimal) error {
	s.log.Info().Str("customer_id", customerID).Str("points", delta.String()).Msg("points change")
	return nil
}

func (s *LogSyncer) SyncBalance(_ context.Context, customerID string, deposit, reward decimal.Decimal) error {
	s.log.Info().Str("customer_id", customerID).
		Str("deposit", deposit.StringFixed(2)).
		Str("reward", reward.StringFixed(2)).
		Msg("balance change")
	return nil
}

// Handler turns customer ledger events into syncer calls.
func Handler(s Syncer) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		if e.CustomerID == "" {
			return nil
		}
		switch e.Type {
		case events.CustomerPointsChanged:
			if e.Points.IsZero() {
				return nil
			}
			if err := s.SyncPoints(ctx, e.CustomerID, e.Points); err != nil {
				return fmt.Errorf("sync points for %s: %w", e.CustomerID, err)
			}
		case events.CustomerBalanceChange:
			if e.Deposit.IsZero() && e.Reward.IsZero() {
				return nil
			}
			if err := s.SyncBalance(ctx, e.CustomerID, e.Deposit, e.Reward); err != nil {
				return fmt.Errorf("sync balance for %s: %w", e.CustomerID, err)
			}
		}
		return nil
	}
}

// Subscribe wires s to the bus. Failures are logged by the bus.
func Subscribe(bus *events.Bus, s Syncer) {
	h := Handler(s)
	bus.Subscribe(events.CustomerPointsChanged, "loyalty", h)
	bus.Subscribe(events.CustomerBalanceChange, "loyalty", h)
}
