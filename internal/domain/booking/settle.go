package booking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/dates"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/money"
)

type PayOptions struct {
	Gateway     payment.Gateway
	UseBalance  bool
	AtReception bool
	// Amount overrides the booking price.
	Amount         *decimal.Decimal
	AmountInPoints *decimal.Decimal
	PayerRef       string
}

// CreatePayment settles a PENDING booking across card, coupon, balance and
// the remainder gateway, one ledger entry per source. Entries already
// written survive a later failure; calling again skips card and coupon
// steps that are paid and charges only what is still uncovered.
func (s *Service) CreatePayment(ctx context.Context, id string, opts PayOptions) (*Booking, error) {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, errs.ErrInvalidTransition)
	}
	r, err := s.resolve(ctx, b)
	if err != nil {
		return nil, err
	}

	if opts.Gateway == payment.GatewayBalance {
		opts.UseBalance = true
	}
	if opts.Gateway != "" {
		switch {
		case !opts.Gateway.Valid():
			return nil, fmt.Errorf("gateway %q: %w", opts.Gateway, errs.ErrInvalidParameters)
		case opts.Gateway == payment.GatewayCard, opts.Gateway == payment.GatewayContract, opts.Gateway == payment.GatewayCoupon:
			return nil, fmt.Errorf("gateway %q cannot pay a remainder: %w", opts.Gateway, errs.ErrInvalidParameters)
		}
	}

	var points decimal.Decimal
	if opts.Gateway == payment.GatewayPoints {
		if points, err = pointsDue(b, opts.AmountInPoints); err != nil {
			return nil, err
		}
	}

	existing, err := s.payments.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	var cardPaid, couponPaid bool
	covered := decimal.Zero
	for i := range existing {
		p := &existing[i]
		if !p.Charge() {
			continue
		}
		switch p.Gateway {
		case payment.GatewayCard, payment.GatewayContract:
			cardPaid = true
		case payment.GatewayCoupon:
			couponPaid = true
		default:
			covered = covered.Add(p.Amount)
		}
	}

	amount := b.Price
	if opts.Amount != nil {
		amount = *opts.Amount
	}

	if c := r.card; c != nil && !opts.AtReception {
		if err := s.checkCardWindow(c, b.Date); err != nil {
			return nil, err
		}
	}
	if c := r.card; c != nil && c.TimesBased() && !cardPaid {
		if err := s.payWithCard(ctx, b, c); err != nil {
			return nil, err
		}
	}
	if cp := r.coupon; cp != nil && !couponPaid {
		if err := s.payWithCoupon(ctx, b, cp); err != nil {
			return nil, err
		}
	}

	remaining := amount.Sub(covered)
	if opts.UseBalance && remaining.IsPositive() && r.customer != nil && r.customer.Balance().IsPositive() {
		paid, err := s.payWithBalance(ctx, b, remaining)
		if err != nil {
			return nil, err
		}
		remaining = remaining.Sub(paid)
	}

	switch {
	case opts.Gateway == payment.GatewayPoints:
		if err := s.payWithPoints(ctx, b, points); err != nil {
			return nil, err
		}
	case !remaining.IsPositive():
	case opts.Gateway == "":
		return nil, fmt.Errorf("%s left to pay: %w", remaining.StringFixed(2), errs.ErrMissingGateway)
	case opts.Gateway == payment.GatewayBalance:
		return nil, fmt.Errorf("%s left to pay: %w", remaining.StringFixed(2), errs.ErrInsufficientBalance)
	case opts.Gateway.Async():
		if err := s.initiate(ctx, b, opts.Gateway, remaining, opts.PayerRef); err != nil {
			return nil, err
		}
		return s.bookings.GetByID(ctx, b.ID)
	default:
		p := s.newPayment(b, opts.Gateway, remaining)
		if err := s.emit(ctx, p, nil); err != nil {
			return nil, err
		}
	}

	if err := s.paymentSuccess(ctx, b.ID, opts.AtReception); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, b.ID)
}

// pointsDue is what a points payment spends: the booking's points price
// unless a larger amount is given.
func pointsDue(b *Booking, offered *decimal.Decimal) (decimal.Decimal, error) {
	if !b.PriceInPoints.IsPositive() {
		return decimal.Zero, fmt.Errorf("booking %s: %w", b.ID, errs.ErrNoPointsPrice)
	}
	if offered == nil {
		return b.PriceInPoints, nil
	}
	if offered.LessThan(b.PriceInPoints) {
		return decimal.Zero, fmt.Errorf("%s points offered, %s due: %w",
			offered.String(), b.PriceInPoints.String(), errs.ErrInsufficientPoints)
	}
	return *offered, nil
}

func (s *Service) checkCardWindow(c *card.Card, date string) error {
	day, err := dates.Parse(date, s.now().Location())
	if err != nil {
		return fmt.Errorf("date %q: %w", date, errs.ErrInvalidParameters)
	}
	if c.Start != nil && c.Start.After(dates.EndOfDay(day)) {
		return errs.ErrCardNotStarted
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(day) {
		return errs.ErrCardExpired
	}
	return nil
}

func (s *Service) newPayment(b *Booking, g payment.Gateway, amount decimal.Decimal) *payment.Payment {
	id := b.ID
	return &payment.Payment{
		CustomerID: b.customerRef(),
		StoreID:    b.storeRef(),
		BookingID:  &id,
		Scene:      payment.Scene(b.Scene),
		Gateway:    g,
		Title:      title(b),
		Amount:     amount,
	}
}

// payWithCard consumes card times for the kids it covers.
func (s *Service) payWithCard(ctx context.Context, b *Booking, c *card.Card) error {
	switch c.Status {
	case card.StatusActivated, card.StatusExpired:
	default:
		return errs.ErrCardNotActivated
	}

	n := b.KidsCount
	if c.MaxKids > 0 && n > c.MaxKids {
		n = c.MaxKids
	}
	if n == 0 {
		return nil
	}

	amount := decimal.Zero
	if c.Times > 0 {
		amount = money.Round2(c.Price.Mul(money.Int(n)).Div(money.Int(c.Times)))
	}
	g := payment.GatewayCard
	if c.IsContract {
		g = payment.GatewayContract
	}
	p := s.newPayment(b, g, amount)
	p.CardID = &c.ID
	p.Times = -n

	return s.emit(ctx, p, func(tx *gorm.DB, _ *[]events.Event) error {
		cards := s.cards.WithTx(tx)
		if err := cards.ConsumeTimes(ctx, c.ID, n); err != nil {
			return err
		}
		locked, err := cards.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		locked.CorrectStatus(s.now())
		return cards.Save(ctx, locked)
	})
}

func (s *Service) payWithCoupon(ctx context.Context, b *Booking, cp *catalog.Coupon) error {
	var units int
	switch {
	case cp.KidsCount == 0 && b.KidsCount == 0:
	case cp.KidsCount == 0 || b.KidsCount%cp.KidsCount != 0:
		return fmt.Errorf("%d kids on a coupon for %d: %w", b.KidsCount, cp.KidsCount, errs.ErrCouponKidsMismatch)
	default:
		units = b.KidsCount / cp.KidsCount
	}

	p := s.newPayment(b, payment.GatewayCoupon, money.Round2(cp.PriceThirdParty.Mul(money.Int(units))))
	p.Title = cp.Title
	return s.emit(ctx, p, nil)
}

// payWithBalance withdraws up to want from the customer's balance and
// returns how much was taken.
func (s *Service) payWithBalance(ctx context.Context, b *Booking, want decimal.Decimal) (decimal.Decimal, error) {
	p := s.newPayment(b, payment.GatewayBalance, decimal.Zero)
	err := s.emit(ctx, p, func(tx *gorm.DB, out *[]events.Event) error {
		customers := s.customers.WithTx(tx)
		cust, err := customers.GetForUpdate(ctx, b.CustomerID)
		if err != nil {
			return err
		}
		amount := money.Min(want, cust.Balance())
		dep, err := cust.WriteOffBalance(amount, decimal.Zero, nil)
		if err != nil {
			return err
		}
		p.Amount, p.AmountDeposit = amount, dep
		*out = append(*out, balanceEvent(cust, dep.Neg(), amount.Sub(dep).Neg()))
		return customers.SaveLedger(ctx, cust)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return p.Amount, nil
}

func (s *Service) payWithPoints(ctx context.Context, b *Booking, points decimal.Decimal) error {
	if b.CustomerID == "" {
		return errs.ErrCustomerNotFound
	}
	p := s.newPayment(b, payment.GatewayPoints, decimal.Zero)
	p.AmountInPoints = points
	return s.emit(ctx, p, func(tx *gorm.DB, out *[]events.Event) error {
		customers := s.customers.WithTx(tx)
		cust, err := customers.GetForUpdate(ctx, b.CustomerID)
		if err != nil {
			return err
		}
		if err := cust.SpendPoints(points); err != nil {
			return err
		}
		*out = append(*out, pointsEvent(cust, points.Neg()))
		return customers.SaveLedger(ctx, cust)
	})
}

type sideEffect func(tx *gorm.DB, out *[]events.Event) error

// emit writes one settled charge in its own transaction: side effect,
// decomposition, insert, then the booking's paid totals.
func (s *Service) emit(ctx context.Context, p *payment.Payment, side sideEffect) error {
	now := s.now()
	var out []events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if side != nil {
			if err := side(tx, &out); err != nil {
				return err
			}
		}
		p.Decompose()
		p.Paid = true
		p.PaidAt = &now
		if err := s.payments.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.refreshAmounts(ctx, tx, *p.BookingID)
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindOf(err)))
		return err
	}

	metrics.IncPayment(string(p.Scene), string(p.Gateway))
	metrics.AddPaymentAmount(string(p.Gateway), p.Amount)
	out = append(out, payment.SettledEvent(p))
	s.publish(ctx, out)
	return nil
}

func (s *Service) initiate(ctx context.Context, b *Booking, g payment.Gateway, amount decimal.Decimal, payerRef string) error {
	provider, err := s.providers.Get(g)
	if err != nil {
		return err
	}
	p := s.newPayment(b, g, amount)
	p.Decompose()
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	res, err := provider.Initiate(ctx, payment.InitiateRequest{
		PaymentID:   p.ID,
		Amount:      p.Amount,
		PayerRef:    payerRef,
		Description: p.Title,
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindGateway))
		return fmt.Errorf("initiate payment %s: %w: %v", p.ID, errs.ErrGateway, err)
	}
	p.GatewayRef = res.Reference
	p.GatewayData = res.Params
	metrics.IncPayment(string(p.Scene), string(p.Gateway))
	return s.payments.UpdateGateway(ctx, p)
}

func (s *Service) refreshAmounts(ctx context.Context, tx *gorm.DB, bookingID string) error {
	ps, err := s.payments.WithTx(tx).ListByBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.bookings.WithTx(tx).SaveAmounts(ctx, bookingID, payment.Sum(ps))
}

// paymentSuccess moves a fully covered PENDING booking to its paid status
// and applies inventory, gift and points side effects once.
func (s *Service) paymentSuccess(ctx context.Context, id string, atReception bool) error {
	v := s.venue.Current()
	now := s.now()

	var out []events.Event
	var plan rewardPlan
	var transitioned Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusPending {
			return nil
		}
		st, err := strategyFor(b.Scene)
		if err != nil {
			return err
		}
		ps, err := s.payments.WithTx(tx).ListByBooking(ctx, id)
		if err != nil {
			return err
		}

		if !b.InventoryDeducted && st.takeStock != nil {
			if err := st.takeStock(ctx, s.catalog.WithTx(tx), b); err != nil {
				return err
			}
			b.InventoryDeducted = true
		}

		if b.CustomerID != "" {
			if err := s.rewardCustomer(ctx, tx, b, ps, v.PointsPerYuan, &out); err != nil {
				return err
			}
		}

		b.Status = st.paidStatus(atReception, b.Date == dates.Format(now))
		if b.Status == StatusInService {
			if plan, err = s.checkIn(ctx, tx, b, ps, &out); err != nil {
				return err
			}
		}
		applyTotals(b, payment.Sum(ps))
		if err := bookings.Save(ctx, b); err != nil {
			return err
		}
		transitioned = b.Status

		out = append(out, events.Event{
			Type:       events.BookingPaid,
			CustomerID: b.CustomerID,
			StoreID:    b.StoreID,
			BookingID:  b.ID,
			Status:     string(b.Status),
			Amount:     b.AmountPaid,
			Points:     b.AmountPaidInPoints,
		})
		return nil
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindOf(err)))
		return err
	}
	if transitioned != "" {
		metrics.IncBookingTransition(string(transitioned))
		s.log.Info().Str("booking_id", id).Str("status", string(transitioned)).Msg("booking paid")
	}
	s.publish(ctx, out)
	s.issueRewards(ctx, plan)
	return nil
}

// rewardCustomer grants gift tags and covers and awards points for the
// money actually paid.
func (s *Service) rewardCustomer(ctx context.Context, tx *gorm.DB, b *Booking, ps []payment.Payment, perYuan decimal.Decimal, out *[]events.Event) error {
	customers := s.customers.WithTx(tx)
	cust, err := customers.GetForUpdate(ctx, b.CustomerID)
	if err != nil {
		return err
	}

	if b.Scene == SceneGift && b.GiftID != nil {
		g, err := s.catalog.WithTx(tx).GetGift(ctx, *b.GiftID)
		if err != nil {
			return err
		}
		changed := false
		if g.TagCustomer != "" && cust.AddTag(g.TagCustomer) {
			changed = true
		}
		if g.IsProfileCover && g.CoverURL != "" && cust.AddCover(g.CoverURL) {
			changed = true
		}
		if changed {
			if err := customers.SaveProfile(ctx, cust); err != nil {
				return err
			}
		}
	}

	if b.PointsAwarded {
		return nil
	}
	b.PointsAwarded = true
	pts := pointsFor(pointsBase(ps, false), perYuan)
	if !pts.IsPositive() {
		return nil
	}
	cust.AddPoints(pts)
	*out = append(*out, pointsEvent(cust, pts))
	return customers.SaveLedger(ctx, cust)
}

// ConfirmPayment handles a verified gateway callback for a booking
// payment. Repeated callbacks are ignored. A charge landing on a booking
// that is no longer PENDING is refunded.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.BookingID == nil {
		return errs.ErrPaymentNotFound
	}
	bookingID := *p.BookingID

	unlock, err := s.locker.Lock(ctx, "booking:"+bookingID)
	if err != nil {
		return err
	}
	defer unlock()

	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = s.payments.WithTx(tx).MarkPaid(ctx, p.ID, s.now())
		if err != nil || !changed {
			return err
		}
		return s.refreshAmounts(ctx, tx, bookingID)
	})
	if err != nil || !changed {
		return err
	}
	p.Paid = true

	if p.IsRefund() {
		s.log.Info().Str("payment_id", p.ID).Str("booking_id", bookingID).Msg("refund confirmed")
		return s.finishRefund(ctx, bookingID)
	}

	metrics.AddPaymentAmount(string(p.Gateway), p.Amount)
	s.publish(ctx, []events.Event{payment.SettledEvent(p)})

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		s.log.Warn().Str("payment_id", p.ID).Str("booking_id", b.ID).Str("status", string(b.Status)).
			Msg("payment confirmed for a booking that is no longer pending, refunding")
		return s.emitRefund(ctx, payment.NewRefund(p, p.Amount, decimal.NewFromInt(1)), p)
	}

	if err := s.paymentSuccess(ctx, b.ID, false); err != nil {
		if errs.KindOf(err) != errs.KindStateConflict {
			return err
		}
		s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("paid booking cannot be fulfilled, cancelling")
		_, cerr := s.cancel(ctx, b.ID)
		return cerr
	}
	return nil
}

func applyTotals(b *Booking, t payment.Totals) {
	b.AmountPaid = t.Amount
	b.AmountPaidInDeposit = t.AmountDeposit
	b.AmountPaidInBalance = t.ByGateway[payment.GatewayBalance]
	b.AmountPaidInCard = t.ByGateway[payment.GatewayCard].Add(t.ByGateway[payment.GatewayContract])
	b.AmountPaidInPoints = t.AmountInPoints
}

// pointsBase sums money that earns points: coupons and points themselves
// are excluded. refunds selects refund entries instead of charges.
func pointsBase(ps []payment.Payment, refunds bool) decimal.Decimal {
	total := decimal.Zero
	for i := range ps {
		p := &ps[i]
		if p.Gateway == payment.GatewayCoupon || p.Gateway == payment.GatewayPoints {
			continue
		}
		switch {
		case refunds && p.IsRefund():
			total = total.Sub(p.Amount)
		case !refunds && p.Charge():
			total = total.Add(p.Amount)
		}
	}
	return total
}

func pointsFor(amount, perYuan decimal.Decimal) decimal.Decimal {
	return amount.Mul(perYuan).Floor()
}

func balanceEvent(c *customer.Customer, deposit, reward decimal.Decimal) events.Event {
	return events.Event{
		Type:       events.CustomerBalanceChange,
		CustomerID: c.ID,
		Deposit:    deposit,
		Reward:     reward,
	}
}

func pointsEvent(c *customer.Customer, delta decimal.Decimal) events.Event {
	return events.Event{
		Type:       events.CustomerPointsChanged,
		CustomerID: c.ID,
		Points:     delta,
	}
}

func title(b *Booking) string {
	return fmt.Sprintf("%s %s", b.Scene, b.Date)
}
