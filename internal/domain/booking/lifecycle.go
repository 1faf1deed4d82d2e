package booking

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/dates"
)

// rewardPlan lists card types to issue once the check-in has committed.
type rewardPlan struct {
	customerID string
	typeRefs   []string
}

// CheckIn moves a BOOKED booking into service.
func (s *Service) CheckIn(ctx context.Context, id string) (*Booking, error) {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []events.Event
	var plan rewardPlan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusBooked {
			return fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, errs.ErrInvalidTransition)
		}
		ps, err := s.payments.WithTx(tx).ListByBooking(ctx, id)
		if err != nil {
			return err
		}
		if plan, err = s.checkIn(ctx, tx, b, ps, &out); err != nil {
			return err
		}
		return bookings.Save(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncBookingTransition(string(StatusInService))
	s.publish(ctx, out)
	s.issueRewards(ctx, plan)
	return s.bookings.GetByID(ctx, id)
}

// checkIn marks b IN_SERVICE and collects reward cards. The caller saves b.
func (s *Service) checkIn(ctx context.Context, tx *gorm.DB, b *Booking, ps []payment.Payment, out *[]events.Event) (rewardPlan, error) {
	now := s.now()
	b.Status = StatusInService
	b.CheckInAt = &now

	plan := rewardPlan{customerID: b.CustomerID}
	if !b.CardsRewarded && b.CustomerID != "" {
		if b.CardID != nil {
			c, err := s.cards.WithTx(tx).GetByID(ctx, *b.CardID)
			if err != nil {
				return plan, err
			}
			plan.typeRefs = append(plan.typeRefs, c.RewardCardTypes...)
		}
		if b.CouponID != nil {
			cp, err := s.catalog.WithTx(tx).GetCoupon(ctx, *b.CouponID)
			if err != nil {
				return plan, err
			}
			units := 1
			if cp.KidsCount > 0 {
				units = b.KidsCount / cp.KidsCount
			}
			for i := 0; i < units; i++ {
				plan.typeRefs = append(plan.typeRefs, cp.RewardCardTypes...)
			}
		}
		b.CardsRewarded = true
	}

	if b.CustomerID != "" {
		customers := s.customers.WithTx(tx)
		cust, err := customers.GetForUpdate(ctx, b.CustomerID)
		if err != nil {
			return plan, err
		}
		if cust.RecordFirstPlay(b.Date, b.StoreID) {
			if err := customers.SaveProfile(ctx, cust); err != nil {
				return plan, err
			}
		}
	}

	e := events.Event{
		Type:       events.BookingCheckedIn,
		CustomerID: b.CustomerID,
		StoreID:    b.StoreID,
		BookingID:  b.ID,
		Status:     string(b.Status),
	}
	for i := range ps {
		if ps[i].Charge() && ps[i].CardID != nil &&
			(ps[i].Gateway == payment.GatewayCard || ps[i].Gateway == payment.GatewayContract) {
			e.CardID = *ps[i].CardID
			e.Amount = ps[i].Amount
			break
		}
	}
	*out = append(*out, e)
	return plan, nil
}

// issueRewards issues the planned cards. Failures are logged; the check-in
// has already committed.
func (s *Service) issueRewards(ctx context.Context, plan rewardPlan) {
	if len(plan.typeRefs) == 0 {
		return
	}
	if s.rewarder == nil {
		s.log.Warn().Str("customer_id", plan.customerID).Int("count", len(plan.typeRefs)).Msg("no card rewarder configured, rewards skipped")
		return
	}
	for _, ref := range plan.typeRefs {
		c, err := s.rewarder.Reward(ctx, ref, plan.customerID)
		if err != nil {
			s.log.Error().Err(err).Str("customer_id", plan.customerID).Str("card_type", ref).Msg("reward card failed")
			continue
		}
		s.log.Info().Str("customer_id", plan.customerID).Str("card_id", c.ID).Str("card_type", ref).Msg("reward card issued")
	}
}

// Finish ends the service of an IN_SERVICE booking.
func (s *Service) Finish(ctx context.Context, id string) (*Booking, error) {
	if err := s.finishLocked(ctx, id); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

func (s *Service) finish(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusInService {
			return fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, errs.ErrInvalidTransition)
		}
		now := s.now()
		b.Status = StatusFinished
		b.CheckOutAt = &now
		return bookings.Save(ctx, b)
	})
	if err != nil {
		return err
	}
	metrics.IncBookingTransition(string(StatusFinished))
	return nil
}

// CancelStalePending cancels PENDING bookings created before cutoff.
// Payments already written for them are refunded.
func (s *Service) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.bookings.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return s.cancelAll(ctx, stale, StatusPending), nil
}

// CancelExpiredBooked cancels BOOKED bookings whose date has passed.
func (s *Service) CancelExpiredBooked(ctx context.Context) (int, error) {
	expired, err := s.bookings.ListByStatusBeforeDate(ctx, StatusBooked, dates.Format(s.now()))
	if err != nil {
		return 0, err
	}
	return s.cancelAll(ctx, expired, StatusBooked), nil
}

func (s *Service) cancelAll(ctx context.Context, bs []Booking, want Status) int {
	n := 0
	for i := range bs {
		ok, err := s.cancelIf(ctx, bs[i].ID, want)
		if err != nil {
			s.log.Error().Err(err).Str("booking_id", bs[i].ID).Msg("auto cancel failed")
			continue
		}
		if ok {
			n++
		}
	}
	return n
}

// cancelIf cancels a booking still in status want once the lock is held.
func (s *Service) cancelIf(ctx context.Context, id string, want Status) (bool, error) {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return false, err
	}
	defer unlock()

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if b.Status != want {
		return false, nil
	}
	if _, err := s.cancel(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// FinishStaleInService finishes IN_SERVICE bookings from earlier days.
func (s *Service) FinishStaleInService(ctx context.Context) (int, error) {
	stale, err := s.bookings.ListByStatusBeforeDate(ctx, StatusInService, dates.Format(s.now()))
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		if err := s.finishLocked(ctx, stale[i].ID); err != nil {
			s.log.Error().Err(err).Str("booking_id", stale[i].ID).Msg("auto finish failed")
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) finishLocked(ctx context.Context, id string) error {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return err
	}
	defer unlock()
	return s.finish(ctx, id)
}
