package payment

import (
	"context"
	"fmt"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
)

// RequestRefund asks the provider to return money for refund entry r of
// src. r stays unpaid until the provider confirms through a callback.
func (ps Providers) RequestRefund(ctx context.Context, repo *Repository, r, src *Payment) error {
	provider, err := ps.Get(r.Gateway)
	if err != nil {
		return err
	}
	res, err := provider.Refund(ctx, RefundRequest{
		OriginalRef:     src.GatewayRef,
		RefundPaymentID: r.ID,
		OriginalAmount:  src.Amount,
		RefundAmount:    r.Amount.Neg(),
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindGateway))
		return fmt.Errorf("refund payment %s: %w: %v", r.ID, errs.ErrGateway, err)
	}
	r.GatewayRef = res.Reference
	return repo.UpdateGateway(ctx, r)
}

// SettledEvent describes p once it is paid.
func SettledEvent(p *Payment) events.Event {
	e := events.Event{
		Type:      events.PaymentSettled,
		PaymentID: p.ID,
		Gateway:   string(p.Gateway),
		Amount:    p.Amount,
		Points:    p.AmountInPoints,
	}
	if p.CustomerID != nil {
		e.CustomerID = *p.CustomerID
	}
	if p.BookingID != nil {
		e.BookingID = *p.BookingID
	}
	if p.CardID != nil {
		e.CardID = *p.CardID
	}
	if p.StoreID != nil {
		e.StoreID = *p.StoreID
	}
	return e
}
