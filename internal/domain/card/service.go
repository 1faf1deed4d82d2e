package card

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/lock"
	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/money"
)

type Service struct {
	db        *gorm.DB
	cards     *Repository
	payments  *payment.Repository
	customers *customer.Repository
	providers payment.Providers
	locker    lock.Locker
	events    events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, providers payment.Providers, locker lock.Locker, pub events.Publisher, log zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		db:        db,
		cards:     NewRepository(db),
		payments:  payment.NewRepository(db),
		customers: customer.NewRepository(db),
		providers: providers,
		locker:    locker,
		events:    pub,
		log:       log.With().Str("component", "CardService").Logger(),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Get(ctx context.Context, id string) (*Card, error) {
	return s.cards.GetByID(ctx, id)
}

// Payments lists the ledger entries attached to a card.
func (s *Service) Payments(ctx context.Context, id string) ([]payment.Payment, error) {
	if _, err := s.cards.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.payments.ListByCard(ctx, id)
}

type PayOptions struct {
	Gateway            payment.Gateway
	AtReceptionStoreID string
	// Amount overrides the card price when set.
	Amount   *decimal.Decimal
	PayerRef string
}

// Issue creates a PENDING card from a card type id or slug.
func (s *Service) Issue(ctx context.Context, typeRef, customerID string, opts IssueOptions) (*Card, error) {
	ct, err := s.cards.GetType(ctx, typeRef)
	if err != nil {
		return nil, err
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}

	c, err := ct.Issue(customerID, opts, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cards.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Reward issues a free card of typeRef and activates it at once.
func (s *Service) Reward(ctx context.Context, typeRef, customerID string) (*Card, error) {
	ct, err := s.cards.GetType(ctx, typeRef)
	if err != nil {
		return nil, err
	}
	c, err := ct.Issue(customerID, IssueOptions{}, s.now())
	if err != nil {
		return nil, err
	}
	c.Price = decimal.Zero

	var out []events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.cards.WithTx(tx).Create(ctx, c); err != nil {
			return err
		}
		return s.paymentSuccess(ctx, tx, c.ID, &out)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, out)
	return s.cards.GetByID(ctx, c.ID)
}

// CreatePayment charges a PENDING card. Zero-priced cards settle at once,
// async gateways wait for ConfirmPayment.
func (s *Service) CreatePayment(ctx context.Context, cardID string, opts PayOptions) (*Card, error) {
	unlock, err := s.locker.Lock(ctx, "card:"+cardID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, errs.ErrInvalidTransition
	}

	total := c.Price
	if opts.Amount != nil {
		total = *opts.Amount
	}

	var out []events.Event
	if !total.IsPositive() {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.paymentSuccess(ctx, tx, c.ID, &out)
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, out)
		return s.cards.GetByID(ctx, c.ID)
	}

	if opts.Gateway == "" {
		return nil, errs.ErrMissingGateway
	}
	if opts.Gateway == payment.GatewayPoints || opts.Gateway == payment.GatewayCard || !opts.Gateway.Valid() {
		return nil, fmt.Errorf("gateway %q for card purchase: %w", opts.Gateway, errs.ErrInvalidParameters)
	}

	p := &payment.Payment{
		CustomerID: &c.CustomerID,
		CardID:     &c.ID,
		Scene:      paymentScene(c, opts.Gateway),
		Gateway:    opts.Gateway,
		Title:      c.Title,
		Amount:     total,
	}
	if opts.AtReceptionStoreID != "" {
		store := opts.AtReceptionStoreID
		p.StoreID = &store
	}

	if opts.Gateway.Async() {
		if err := s.initiate(ctx, p, opts.PayerRef); err != nil {
			return nil, err
		}
		return c, nil
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.Gateway == payment.GatewayBalance {
			cust, err := s.customers.WithTx(tx).GetForUpdate(ctx, c.CustomerID)
			if err != nil {
				return err
			}
			dep, err := cust.WriteOffBalance(total, decimal.Zero, nil)
			if err != nil {
				return err
			}
			p.AmountDeposit = dep
			if err := s.customers.WithTx(tx).SaveLedger(ctx, cust); err != nil {
				return err
			}
			out = append(out, events.Event{
				Type:       events.CustomerBalanceChange,
				CustomerID: c.CustomerID,
				Deposit:    dep.Neg(),
				Reward:     total.Sub(dep).Neg(),
			})
		}
		p.Decompose()
		p.Paid = true
		p.PaidAt = &now
		if err := s.payments.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.paymentSuccess(ctx, tx, c.ID, &out)
	})
	if err != nil {
		metrics.IncSettlementError(string(errs.KindOf(err)))
		return nil, err
	}

	metrics.IncPayment(string(p.Scene), string(p.Gateway))
	metrics.AddPaymentAmount(string(p.Gateway), p.Amount)
	out = append(out, payment.SettledEvent(p))
	s.publish(ctx, out)
	return s.cards.GetByID(ctx, c.ID)
}

func (s *Service) initiate(ctx context.Context, p *payment.Payment, payerRef string) error {
	provider, err := s.providers.Get(p.Gateway)
	if err != nil {
		return err
	}
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

// ConfirmPayment handles a gateway callback for a card payment. Repeated
// callbacks are ignored.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.CardID == nil || p.BookingID != nil {
		return errs.ErrPaymentNotFound
	}

	unlock, err := s.locker.Lock(ctx, "card:"+*p.CardID)
	if err != nil {
		return err
	}
	defer unlock()

	var out []events.Event
	var orphan, settled bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := s.payments.WithTx(tx).MarkPaid(ctx, p.ID, s.now())
		if err != nil || !changed || p.IsRefund() {
			return err
		}
		settled = true
		c, err := s.cards.WithTx(tx).GetForUpdate(ctx, *p.CardID)
		if err != nil {
			return err
		}
		if c.Status != StatusPending {
			orphan = true
			return nil
		}
		return s.paymentSuccess(ctx, tx, c.ID, &out)
	})
	if err != nil {
		return err
	}

	if orphan {
		s.log.Warn().Str("payment_id", p.ID).Str("card_id", *p.CardID).Msg("payment confirmed for a card that is no longer pending, refunding")
		c, err := s.cards.GetByID(ctx, *p.CardID)
		if err != nil {
			return err
		}
		p.Paid = true
		return s.refundCharges(ctx, c, []payment.Payment{*p}, p.Amount)
	}

	if settled {
		p.Paid = true
		metrics.AddPaymentAmount(string(p.Gateway), p.Amount)
		out = append(out, payment.SettledEvent(p))
	}
	s.publish(ctx, out)
	return nil
}

func (s *Service) paymentSuccess(ctx context.Context, tx *gorm.DB, cardID string, out *[]events.Event) error {
	c, err := s.cards.WithTx(tx).GetForUpdate(ctx, cardID)
	if err != nil {
		return err
	}
	prev := c.Status
	if c.IsGift {
		c.Status = StatusValid
	} else {
		c.Status = StatusActivated
	}
	return s.persist(ctx, tx, c, prev, out)
}

// persist corrects status and saves. A balance card reaching ACTIVATED for
// the first time deposits its balance into the customer's ledger.
func (s *Service) persist(ctx context.Context, tx *gorm.DB, c *Card, prev Status, out *[]events.Event) error {
	c.CorrectStatus(s.now())
	if err := s.cards.WithTx(tx).Save(ctx, c); err != nil {
		return err
	}

	firstActivation := c.Status == StatusActivated && (prev == StatusPending || prev == StatusValid)
	if firstActivation && c.Type == TypeBalance {
		customers := s.customers.WithTx(tx)
		cust, err := customers.GetForUpdate(ctx, c.CustomerID)
		if err != nil {
			return err
		}
		cust.DepositBalance(c.Balance, c.Price)
		if err := customers.SaveLedger(ctx, cust); err != nil {
			return err
		}
		*out = append(*out, events.Event{
			Type:       events.CustomerBalanceChange,
			CustomerID: c.CustomerID,
			CardID:     c.ID,
			Deposit:    c.Price,
			Reward:     c.Balance.Sub(c.Price),
		})
	}
	if prev != c.Status && c.Status == StatusActivated {
		*out = append(*out, events.Event{
			Type:       events.CardActivated,
			CustomerID: c.CustomerID,
			CardID:     c.ID,
			Status:     string(c.Status),
			Amount:     c.Price,
		})
	}
	return nil
}

// Refund cancels a card and hands back up to amount (default: its price).
func (s *Service) Refund(ctx context.Context, cardID string, amount *decimal.Decimal) (*Card, error) {
	unlock, err := s.locker.Lock(ctx, "card:"+cardID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case StatusActivated, StatusValid, StatusExpired:
	default:
		return nil, errs.ErrCardRefundNotPossible
	}

	deposited := c.Type == TypeBalance && (c.Status == StatusActivated || c.Status == StatusExpired)
	if deposited {
		cust, err := s.customers.GetByID(ctx, c.CustomerID)
		if err != nil {
			return nil, err
		}
		if cust.BalanceDeposit.LessThan(c.Price) || cust.BalanceReward.LessThan(c.Balance.Sub(c.Price)) {
			return nil, errs.ErrInsufficientBalanceForRefund
		}
	}

	total := c.Price
	if amount != nil {
		total = *amount
	}
	if err := s.createRefundPayment(ctx, c, total); err != nil {
		return nil, err
	}

	var out []events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.cards.WithTx(tx).GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		locked.Status = StatusCanceled
		if err := s.cards.WithTx(tx).Save(ctx, locked); err != nil {
			return err
		}
		if !deposited {
			return nil
		}
		customers := s.customers.WithTx(tx)
		cust, err := customers.GetForUpdate(ctx, c.CustomerID)
		if err != nil {
			return err
		}
		cust.DepositBalance(c.Balance.Neg(), c.Price.Neg())
		out = append(out, events.Event{
			Type:       events.CustomerBalanceChange,
			CustomerID: c.CustomerID,
			CardID:     c.ID,
			Deposit:    c.Price.Neg(),
			Reward:     c.Balance.Sub(c.Price).Neg(),
		})
		return customers.SaveLedger(ctx, cust)
	})
	if err != nil {
		return nil, err
	}

	out = append(out, events.Event{Type: events.CardRefunded, CustomerID: c.CustomerID, CardID: c.ID, Amount: total})
	s.publish(ctx, out)
	return s.cards.GetByID(ctx, c.ID)
}

// createRefundPayment walks the card's purchase payments in order and
// refunds up to total across them.
func (s *Service) createRefundPayment(ctx context.Context, c *Card, total decimal.Decimal) error {
	ps, err := s.payments.ListByCard(ctx, c.ID)
	if err != nil {
		return err
	}
	return s.refundCharges(ctx, c, ps, total)
}

func (s *Service) refundCharges(ctx context.Context, c *Card, ps []payment.Payment, total decimal.Decimal) error {
	remaining := total
	ratio := c.LiabilityRatio()
	for i := range ps {
		src := &ps[i]
		if !src.Charge() || !src.Scene.Prepaid() {
			continue
		}
		if !remaining.IsPositive() {
			break
		}
		amt := money.Min(remaining, src.Amount)
		r := payment.NewRefund(src, amt, ratio)
		if err := s.emitRefund(ctx, r, src); err != nil {
			return err
		}
		remaining = remaining.Sub(amt)
	}
	return nil
}

// emitRefund writes the refund entry, then flags its source, in one
// transaction. Async gateways are asked to refund after commit.
func (s *Service) emitRefund(ctx context.Context, r, src *payment.Payment) error {
	now := s.now()
	var out []events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.Gateway == payment.GatewayBalance && r.CustomerID != nil {
			customers := s.customers.WithTx(tx)
			cust, err := customers.GetForUpdate(ctx, *r.CustomerID)
			if err != nil {
				return err
			}
			cust.DepositBalance(r.Amount.Neg(), r.AmountDeposit.Neg())
			if err := customers.SaveLedger(ctx, cust); err != nil {
				return err
			}
			out = append(out, events.Event{
				Type:       events.CustomerBalanceChange,
				CustomerID: cust.ID,
				Deposit:    r.AmountDeposit.Neg(),
				Reward:     r.Amount.Sub(r.AmountDeposit).Neg(),
			})
		}
		if !r.Gateway.Async() {
			r.Paid = true
			r.PaidAt = &now
		}
		if err := s.payments.WithTx(tx).Create(ctx, r); err != nil {
			return err
		}
		return s.payments.WithTx(tx).MarkRefunded(ctx, src.ID)
	})
	if err != nil {
		return err
	}
	metrics.IncRefund(string(r.Gateway))
	s.publish(ctx, out)

	if r.Gateway.Async() {
		return s.providers.RequestRefund(ctx, s.payments, r, src)
	}
	return nil
}

// Extend moves expiry and/or adds times. Status is corrected on save.
func (s *Service) Extend(ctx context.Context, cardID string, expiresAt *time.Time, addTimes int) (*Card, error) {
	unlock, err := s.locker.Lock(ctx, "card:"+cardID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cards.WithTx(tx).GetForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		prev := c.Status
		if expiresAt != nil {
			t := *expiresAt
			c.ExpiresAt = &t
			if c.Type == TypePeriod {
				c.End = &t
			}
		}
		if addTimes > 0 {
			c.Times += addTimes
			c.TimesLeft += addTimes
		}
		return s.persist(ctx, tx, c, prev, &out)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, out)
	return s.cards.GetByID(ctx, cardID)
}

// CancelStalePending cancels PENDING cards created before cutoff.
func (s *Service) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.cards.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		ok, err := s.cancelPending(ctx, stale[i].ID)
		if err != nil {
			s.log.Error().Err(err).Str("card_id", stale[i].ID).Msg("cancel stale card failed")
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Service) cancelPending(ctx context.Context, id string) (bool, error) {
	unlock, err := s.locker.Lock(ctx, "card:"+id)
	if err != nil {
		return false, err
	}
	defer unlock()

	var canceled bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cards.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != StatusPending {
			return nil
		}
		c.Status = StatusCanceled
		canceled = true
		return s.cards.WithTx(tx).Save(ctx, c)
	})
	return canceled, err
}

// CorrectStatuses re-saves cards whose expiry crossed now.
func (s *Service) CorrectStatuses(ctx context.Context) (int, error) {
	drift, err := s.cards.ListStatusDrift(ctx, s.now())
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range drift {
		before := drift[i].Status
		c, err := s.resave(ctx, drift[i].ID)
		if err != nil {
			s.log.Error().Err(err).Str("card_id", drift[i].ID).Msg("status correction failed")
			continue
		}
		if c.Status != before {
			n++
		}
	}
	return n, nil
}

func (s *Service) resave(ctx context.Context, id string) (*Card, error) {
	unlock, err := s.locker.Lock(ctx, "card:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var c *Card
	var out []events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = s.cards.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.persist(ctx, tx, c, c.Status, &out)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, out)
	return c, nil
}

func (s *Service) publish(ctx context.Context, out []events.Event) {
	for _, e := range out {
		s.events.Publish(ctx, e)
	}
}

func paymentScene(c *Card, g payment.Gateway) payment.Scene {
	if g == payment.GatewayMall || len(c.StoreIDs) != 1 {
		return payment.SceneMall
	}
	switch c.Type {
	case TypeBalance:
		return payment.SceneBalance
	case TypePeriod:
		return payment.ScenePeriod
	default:
		return payment.SceneCard
	}
}
