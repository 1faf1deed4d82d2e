package settlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

// Confirmer settles a payment its owner created once the gateway confirms it.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, paymentID string) error
}

// Router verifies gateway callbacks and hands the confirmed payment to the
// booking or card flow that owns it.
type Router struct {
	payments  *payment.Repository
	providers payment.Providers
	bookings  Confirmer
	cards     Confirmer
	log       zerolog.Logger
}

func NewRouter(payments *payment.Repository, providers payment.Providers, bookings, cards Confirmer, log zerolog.Logger) *Router {
	return &Router{
		payments:  payments,
		providers: providers,
		bookings:  bookings,
		cards:     cards,
		log:       log.With().Str("component", "SettlementRouter").Logger(),
	}
}

// HandleNotify processes one raw callback for gateway g. Failed outcomes
// are logged and leave the payment unpaid.
func (r *Router) HandleNotify(ctx context.Context, g payment.Gateway, raw []byte, signature string) error {
	provider, err := r.providers.Get(g)
	if err != nil {
		return err
	}
	n, err := provider.ParseNotify(ctx, raw, signature)
	if err != nil {
		return err
	}

	p, err := r.payments.GetByID(ctx, n.PaymentID)
	if err != nil {
		return err
	}
	if p.Gateway != g {
		return fmt.Errorf("payment %s belongs to %s: %w", p.ID, p.Gateway, errs.ErrInvalidNotify)
	}
	if p.GatewayRef != "" && n.Reference != "" && p.GatewayRef != n.Reference {
		return fmt.Errorf("payment %s reference mismatch: %w", p.ID, errs.ErrInvalidNotify)
	}
	if n.Amount != nil && !n.Amount.Abs().Equal(p.Amount.Abs()) {
		return fmt.Errorf("payment %s amount %s, notified %s: %w",
			p.ID, p.Amount.StringFixed(2), n.Amount.StringFixed(2), errs.ErrInvalidNotify)
	}

	log := r.log.With().Str("payment_id", p.ID).Str("gateway", string(g)).Logger()
	if !n.Success {
		log.Warn().Bool("refund", p.IsRefund()).Msg("gateway reported failure")
		return nil
	}
	if p.Paid {
		log.Info().Msg("duplicate notify ignored")
		return nil
	}

	switch {
	case p.BookingID != nil:
		err = r.bookings.ConfirmPayment(ctx, p.ID)
	case p.CardID != nil:
		err = r.cards.ConfirmPayment(ctx, p.ID)
	default:
		err = errs.ErrPaymentNotFound
	}
	if err != nil {
		log.Error().Err(err).Msg("confirm payment failed")
		return err
	}
	log.Info().Bool("refund", p.IsRefund()).Msg("payment confirmed")
	return nil
}
