package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

type InitiateRequest struct {
	PaymentID   string
	Amount      decimal.Decimal
	PayerRef    string
	Description string
}

type InitiateResult struct {
	Reference string
	Params    map[string]any
}

type RefundRequest struct {
	OriginalRef     string
	RefundPaymentID string
	OriginalAmount  decimal.Decimal
	RefundAmount    decimal.Decimal
}

type RefundResult struct {
	Reference string
	Accepted  bool
}

// Notification is what a verified gateway callback carries.
type Notification struct {
	PaymentID string
	Reference string
	Success   bool
	// Amount is what the gateway says moved, nil when it does not say.
	Amount *decimal.Decimal
}

// Provider is an external payment gateway.
type Provider interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	// ParseNotify verifies a raw callback payload and extracts its outcome.
	ParseNotify(ctx context.Context, raw []byte, signature string) (*Notification, error)
}

// Providers maps async gateways to their adapters.
type Providers map[Gateway]Provider

func (ps Providers) Get(g Gateway) (Provider, error) {
	p, ok := ps[g]
	if !ok || p == nil {
		return nil, fmt.Errorf("%s: %w", g, errs.ErrUnknownGateway)
	}
	return p, nil
}
