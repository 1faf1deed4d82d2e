package booking

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
)

// Cancel refunds every paid charge of a booking and cancels it once the
// refunds are confirmed. Cancelling a CANCELED booking does nothing.
func (s *Service) Cancel(ctx context.Context, id string) (*Booking, error) {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.cancel(ctx, id)
}

func (s *Service) cancel(ctx context.Context, id string) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCanceled {
		return b, nil
	}

	ps, err := s.payments.ListByBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	var charges []payment.Payment
	for i := range ps {
		if ps[i].Charge() {
			charges = append(charges, ps[i])
		}
	}

	if len(charges) > 0 && b.Status != StatusPendingRefund {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.bookings.WithTx(tx).GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked.Status = StatusPendingRefund
			return s.bookings.WithTx(tx).Save(ctx, locked)
		})
		if err != nil {
			return nil, err
		}
		metrics.IncBookingTransition(string(StatusPendingRefund))
	}

	if err := s.createRefundPayment(ctx, charges); err != nil {
		return nil, err
	}
	if err := s.retryPendingRefunds(ctx, id); err != nil {
		return nil, err
	}
	if err := s.finishRefund(ctx, id); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

// createRefundPayment mirrors each charge with one negative entry:
// stored value first, then points, then everything else.
func (s *Service) createRefundPayment(ctx context.Context, charges []payment.Payment) error {
	groups := [][]*payment.Payment{nil, nil, nil}
	for i := range charges {
		p := &charges[i]
		switch p.Gateway {
		case payment.GatewayBalance, payment.GatewayCard, payment.GatewayContract:
			groups[0] = append(groups[0], p)
		case payment.GatewayPoints:
			groups[1] = append(groups[1], p)
		default:
			groups[2] = append(groups[2], p)
		}
	}

	one := decimal.NewFromInt(1)
	for _, group := range groups {
		for _, src := range group {
			if err := s.emitRefund(ctx, payment.NewRefund(src, src.Amount, one), src); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitRefund gives back what src took, writes the refund entry and then
// flags src, all in one transaction. Async gateways are asked to pay the
// refund out after commit.
func (s *Service) emitRefund(ctx context.Context, r, src *payment.Payment) error {
	now := s.now()
	var out []events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch src.Gateway {
		case payment.GatewayBalance:
			if src.CustomerID == nil {
				break
			}
			customers := s.customers.WithTx(tx)
			cust, err := customers.GetForUpdate(ctx, *src.CustomerID)
			if err != nil {
				return err
			}
			cust.DepositBalance(src.Amount, src.AmountDeposit)
			if err := customers.SaveLedger(ctx, cust); err != nil {
				return err
			}
			out = append(out, balanceEvent(cust, src.AmountDeposit, src.Amount.Sub(src.AmountDeposit)))
		case payment.GatewayCard, payment.GatewayContract:
			if src.CardID == nil || src.Times >= 0 {
				break
			}
			cards := s.cards.WithTx(tx)
			if err := cards.RestoreTimes(ctx, *src.CardID, -src.Times); err != nil {
				return err
			}
			c, err := cards.GetForUpdate(ctx, *src.CardID)
			if err != nil {
				return err
			}
			c.CorrectStatus(now)
			if err := cards.Save(ctx, c); err != nil {
				return err
			}
		case payment.GatewayPoints:
			if src.CustomerID == nil {
				break
			}
			customers := s.customers.WithTx(tx)
			cust, err := customers.GetForUpdate(ctx, *src.CustomerID)
			if err != nil {
				return err
			}
			cust.AddPoints(src.AmountInPoints)
			if err := customers.SaveLedger(ctx, cust); err != nil {
				return err
			}
			out = append(out, pointsEvent(cust, src.AmountInPoints))
		}

		if !r.Gateway.Async() {
			r.Paid = true
			r.PaidAt = &now
		}
		if err := s.payments.WithTx(tx).Create(ctx, r); err != nil {
			return err
		}
		if err := s.payments.WithTx(tx).MarkRefunded(ctx, src.ID); err != nil {
			return err
		}
		if r.BookingID == nil {
			return nil
		}
		return s.refreshAmounts(ctx, tx, *r.BookingID)
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindOf(err)))
		return err
	}
	metrics.IncRefund(string(r.Gateway))
	s.publish(ctx, out)

	if r.Gateway.Async() {
		return s.providers.RequestRefund(ctx, s.payments, r, src)
	}
	return nil
}

// retryPendingRefunds asks the gateway again for async refunds it never
// acknowledged.
func (s *Service) retryPendingRefunds(ctx context.Context, id string) error {
	ps, err := s.payments.ListByBooking(ctx, id)
	if err != nil {
		return err
	}
	byID := make(map[string]*payment.Payment, len(ps))
	for i := range ps {
		byID[ps[i].ID] = &ps[i]
	}
	for i := range ps {
		r := &ps[i]
		if !r.IsRefund() || r.Paid || r.GatewayRef != "" || !r.Gateway.Async() {
			continue
		}
		src, ok := byID[*r.OriginalID]
		if !ok {
			continue
		}
		if err := s.providers.RequestRefund(ctx, s.payments, r, src); err != nil {
			return err
		}
	}
	return nil
}

// finishRefund cancels the booking once no refund entry is waiting for
// the gateway.
func (s *Service) finishRefund(ctx context.Context, id string) error {
	v := s.venue.Current()
	var out []events.Event
	var canceled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == StatusCanceled {
			return nil
		}
		ps, err := s.payments.WithTx(tx).ListByBooking(ctx, id)
		if err != nil {
			return err
		}
		for i := range ps {
			if ps[i].IsRefund() && !ps[i].Paid {
				return nil
			}
		}
		if err := s.refundSuccess(ctx, tx, b, ps, v.PointsPerYuan, &out); err != nil {
			return err
		}
		canceled = true
		return nil
	})
	if err != nil {
		return err
	}
	if canceled {
		metrics.IncBookingTransition(string(StatusCanceled))
		s.log.Info().Str("booking_id", id).Msg("booking canceled")
	}
	s.publish(ctx, out)
	return nil
}

// refundSuccess restores inventory, takes back points awarded for the
// refunded money and marks the booking CANCELED.
func (s *Service) refundSuccess(ctx context.Context, tx *gorm.DB, b *Booking, ps []payment.Payment, perYuan decimal.Decimal, out *[]events.Event) error {
	st, err := strategyFor(b.Scene)
	if err != nil {
		return err
	}
	if b.InventoryDeducted && st.returnStock != nil {
		if err := st.returnStock(ctx, s.catalog.WithTx(tx), b); err != nil {
			return err
		}
	}
	b.InventoryDeducted = false

	if b.PointsAwarded && b.CustomerID != "" {
		pts := pointsFor(pointsBase(ps, true), perYuan)
		if pts.IsPositive() {
			customers := s.customers.WithTx(tx)
			cust, err := customers.GetForUpdate(ctx, b.CustomerID)
			if err != nil {
				return err
			}
			taken := cust.ReclaimPoints(pts)
			if err := customers.SaveLedger(ctx, cust); err != nil {
				return err
			}
			*out = append(*out, pointsEvent(cust, taken.Neg()))
		}
	}
	b.PointsAwarded = false

	b.Status = StatusCanceled
	applyTotals(b, payment.Sum(ps))
	if err := s.bookings.WithTx(tx).Save(ctx, b); err != nil {
		return err
	}
	*out = append(*out, events.Event{
		Type:       events.BookingCancelled,
		CustomerID: b.CustomerID,
		StoreID:    b.StoreID,
		BookingID:  b.ID,
		Status:     string(b.Status),
		Amount:     pointsBase(ps, true),
	})
	return nil
}
