package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/lock"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/dates"
)

type Service struct {
	db        *gorm.DB
	bookings  *Repository
	payments  *payment.Repository
	customers *customer.Repository
	cards     *card.Repository
	catalog   *catalog.Repository
	providers payment.Providers
	rewarder  CardRewarder
	venue     VenueProvider
	locker    lock.Locker
	events    events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(
	db *gorm.DB,
	providers payment.Providers,
	rewarder CardRewarder,
	venue VenueProvider,
	locker lock.Locker,
	pub events.Publisher,
	log zerolog.Logger,
) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		db:        db,
		bookings:  NewRepository(db),
		payments:  payment.NewRepository(db),
		customers: customer.NewRepository(db),
		cards:     card.NewRepository(db),
		catalog:   catalog.NewRepository(db),
		providers: providers,
		rewarder:  rewarder,
		venue:     venue,
		locker:    locker,
		events:    pub,
		log:       log.With().Str("component", "BookingService").Logger(),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// Payments lists the ledger entries attached to a booking.
func (s *Service) Payments(ctx context.Context, id string) ([]payment.Payment, error) {
	if _, err := s.bookings.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.payments.ListByBooking(ctx, id)
}

type CreateInput struct {
	CustomerID  string
	StoreID     string
	Scene       Scene
	Date        string
	AdultsCount int
	KidsCount   int
	SocksCount  int
	Quantity    int
	CardID      string
	CouponID    string
	EventID     string
	GiftID      string
	TableID     string
	Items       []Item
	// Price is taken as is for party bookings and as the base for food.
	Price   *decimal.Decimal
	Remarks string
}

// Create validates references and capacity, prices the booking and stores
// it PENDING.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	st, err := strategyFor(in.Scene)
	if err != nil {
		return nil, err
	}
	if in.AdultsCount < 0 || in.KidsCount < 0 || in.SocksCount < 0 || in.Quantity < 0 {
		return nil, errs.ErrInvalidParameters
	}

	b := &Booking{
		CustomerID:  in.CustomerID,
		StoreID:     in.StoreID,
		Scene:       in.Scene,
		Status:      StatusPending,
		Date:        in.Date,
		AdultsCount: in.AdultsCount,
		KidsCount:   in.KidsCount,
		SocksCount:  in.SocksCount,
		Quantity:    in.Quantity,
		CardID:      optional(in.CardID),
		CouponID:    optional(in.CouponID),
		EventID:     optional(in.EventID),
		GiftID:      optional(in.GiftID),
		TableID:     in.TableID,
		Items:       in.Items,
		Remarks:     in.Remarks,
	}
	if in.Price != nil {
		b.Price = *in.Price
	}
	if b.Date == "" {
		b.Date = dates.Format(s.now())
	} else if _, err := dates.Parse(b.Date, time.Local); err != nil {
		return nil, fmt.Errorf("date %q: %w", b.Date, errs.ErrInvalidParameters)
	}

	r, err := s.resolve(ctx, b)
	if err != nil {
		return nil, err
	}

	if c := r.card; c != nil {
		if c.CustomerID != b.CustomerID {
			return nil, errs.ErrCardNotOwned
		}
		if c.Status != card.StatusActivated {
			return nil, errs.ErrCardNotActivated
		}
		if b.StoreID != "" && !c.AvailableIn(b.StoreID) {
			return nil, errs.ErrCardStoreNotApplicable
		}
		b.LimitGroup = c.LimitGroup
	}
	if e := r.event; e != nil && e.KidsCountLeft != nil && *e.KidsCountLeft < b.KidsCount {
		return nil, errs.ErrEventFull
	}
	if g := r.gift; g != nil {
		if err := s.checkGift(ctx, b, g); err != nil {
			return nil, err
		}
	}

	venue := s.venue.Current()
	if st.storeLimit && r.store != nil {
		if err := s.checkStoreLimit(ctx, s.bookings, b, r.store, venue); err != nil {
			return nil, err
		}
	}

	price, err := CalculatePrice(r.priceInput(b, venue))
	if err != nil {
		return nil, err
	}
	b.Price, b.PriceInPoints = price.Price, price.PriceInPoints

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info().Str("booking_id", b.ID).Str("scene", string(b.Scene)).Str("price", b.Price.String()).Msg("booking created")
	return b, nil
}

func (s *Service) checkGift(ctx context.Context, b *Booking, g *catalog.Gift) error {
	q := giftQuantity(b)
	if g.Quantity != nil && *g.Quantity < q {
		return errs.ErrGiftOutOfStock
	}
	if g.MaxQuantityPerCustomer > 0 && b.CustomerID != "" {
		ordered, err := s.bookings.GiftQuantityOrdered(ctx, b.CustomerID, g.ID)
		if err != nil {
			return err
		}
		if ordered+q > g.MaxQuantityPerCustomer {
			return errs.ErrGiftQuantityLimit
		}
	}
	return nil
}

// Price recomputes a booking's price without saving it.
func (s *Service) Price(ctx context.Context, id string) (PriceResult, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return PriceResult{}, err
	}
	r, err := s.resolve(ctx, b)
	if err != nil {
		return PriceResult{}, err
	}
	return CalculatePrice(r.priceInput(b, s.venue.Current()))
}

// CheckStoreLimit fails when the booking's kids would push its store over
// the day's cap for its limit group.
func (s *Service) CheckStoreLimit(ctx context.Context, b *Booking) error {
	if b.StoreID == "" {
		return nil
	}
	store, err := s.catalog.GetStore(ctx, b.StoreID)
	if err != nil {
		return err
	}
	return s.checkStoreLimit(ctx, s.bookings, b, store, s.venue.Current())
}

func (s *Service) checkStoreLimit(ctx context.Context, repo *Repository, b *Booking, store *catalog.Store, v *config.Venue) error {
	weekday := v.LimitWeekday(b.Date)
	limit, ok := store.DailyLimit.Data().KidsLimit(b.Date, weekday, b.LimitGroup)
	if !ok {
		return nil
	}
	booked, err := repo.KidsBooked(ctx, b.StoreID, b.Date, b.LimitGroup, b.ID)
	if err != nil {
		return err
	}
	if booked+b.KidsCount > limit {
		return fmt.Errorf("%d of %d places taken: %w", booked, limit, errs.ErrStoreLimitExceeded)
	}
	return nil
}

// refs are a booking's resolved references.
type refs struct {
	customer *customer.Customer
	store    *catalog.Store
	card     *card.Card
	coupon   *catalog.Coupon
	event    *catalog.Event
	gift     *catalog.Gift
}

func (s *Service) resolve(ctx context.Context, b *Booking) (*refs, error) {
	r := &refs{}
	var err error
	if b.CustomerID != "" {
		if r.customer, err = s.customers.GetByID(ctx, b.CustomerID); err != nil {
			return nil, err
		}
	}
	if b.StoreID != "" {
		if r.store, err = s.catalog.GetStore(ctx, b.StoreID); err != nil {
			return nil, err
		}
	}
	if b.CardID != nil {
		if r.card, err = s.cards.GetByID(ctx, *b.CardID); err != nil {
			return nil, err
		}
	}
	if b.CouponID != nil {
		if r.coupon, err = s.catalog.GetCoupon(ctx, *b.CouponID); err != nil {
			return nil, err
		}
	}
	if b.EventID != nil {
		if r.event, err = s.catalog.GetEvent(ctx, *b.EventID); err != nil {
			return nil, err
		}
	}
	if b.GiftID != nil {
		if r.gift, err = s.catalog.GetGift(ctx, *b.GiftID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *refs) priceInput(b *Booking, v *config.Venue) PriceInput {
	return PriceInput{
		Booking: b,
		Venue:   v,
		Store:   r.store,
		Card:    r.card,
		Coupon:  r.coupon,
		Event:   r.event,
		Gift:    r.gift,
	}
}

func (s *Service) publish(ctx context.Context, out []events.Event) {
	for _, e := range out {
		s.events.Publish(ctx, e)
	}
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
