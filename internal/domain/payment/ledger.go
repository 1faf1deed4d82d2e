package payment

import (
	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/money"
)

// fundedValue is the real value a payment moves: the deposit share for
// balance payments, nothing for points, the full amount otherwise.
func (p *Payment) fundedValue() decimal.Decimal {
	switch p.Gateway {
	case GatewayPoints:
		return decimal.Zero
	case GatewayBalance:
		return p.AmountDeposit
	default:
		return p.Amount
	}
}

// Decompose fills Debt/Assets/Revenue for a charge.
//
// Funding side: cash-like and coupon gateways bring assets, stored-value
// gateways consume debt. Recognition side: prepaid scenes add debt,
// service scenes recognise revenue.
func (p *Payment) Decompose() {
	p.Debt, p.Assets, p.Revenue = decimal.Zero, decimal.Zero, decimal.Zero
	if p.Gateway == GatewayPoints {
		return
	}

	f := p.fundedValue()
	if p.Gateway.StoredValue() {
		p.Debt = f.Neg()
	} else {
		p.Assets = f
	}
	if p.Scene.Prepaid() {
		p.Debt = p.Debt.Add(f)
	} else {
		p.Revenue = f
	}
}

// Balanced reports debt + revenue == assets.
func (p *Payment) Balanced() bool {
	return p.Debt.Add(p.Revenue).Equal(p.Assets)
}

// NewRefund builds the entry reversing amount of orig. liabilityRatio scales
// the liability released for prepaid scenes (timesLeft/times for a used
// times card, 1 otherwise); whatever is not handed back becomes revenue.
func NewRefund(orig *Payment, amount, liabilityRatio decimal.Decimal) *Payment {
	share := decimal.NewFromInt(1)
	if !orig.Amount.IsZero() && !amount.Equal(orig.Amount) {
		share = amount.Div(orig.Amount)
	}

	origID := orig.ID
	r := &Payment{
		CustomerID:     orig.CustomerID,
		StoreID:        orig.StoreID,
		BookingID:      orig.BookingID,
		CardID:         orig.CardID,
		OriginalID:     &origID,
		Scene:          orig.Scene,
		Gateway:        orig.Gateway,
		Title:          orig.Title,
		Amount:         amount.Neg(),
		AmountDeposit:  money.Round2(orig.AmountDeposit.Mul(share)).Neg(),
		AmountInPoints: money.Round2(orig.AmountInPoints.Mul(share)).Neg(),
		Times:          -orig.Times,
	}
	if r.Gateway == GatewayPoints {
		return r
	}

	f := r.fundedValue()
	if r.Gateway.StoredValue() {
		r.Debt = f.Neg()
	} else {
		r.Assets = f
	}
	if orig.Scene.Prepaid() {
		released := money.Round2(orig.fundedValue().Mul(liabilityRatio))
		r.Debt = r.Debt.Sub(released)
		r.Revenue = r.Assets.Sub(r.Debt)
	} else {
		r.Revenue = f
	}
	return r
}

// Totals sums charges that are still in force.
type Totals struct {
	Amount         decimal.Decimal
	AmountDeposit  decimal.Decimal
	AmountInPoints decimal.Decimal
	ByGateway      map[Gateway]decimal.Decimal
}

func Sum(payments []Payment) Totals {
	t := Totals{ByGateway: map[Gateway]decimal.Decimal{}}
	for i := range payments {
		p := &payments[i]
		if !p.Charge() {
			continue
		}
		t.Amount = t.Amount.Add(p.Amount)
		t.AmountDeposit = t.AmountDeposit.Add(p.AmountDeposit)
		t.AmountInPoints = t.AmountInPoints.Add(p.AmountInPoints)
		t.ByGateway[p.Gateway] = t.ByGateway[p.Gateway].Add(p.Amount)
	}
	return t
}
