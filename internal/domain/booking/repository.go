package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Booking, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) get(q *gorm.DB, id string) (*Booking, error) {
	var b Booking
	if err := q.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) Save(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// SaveAmounts writes the paid breakdown derived from t.
func (r *Repository) SaveAmounts(ctx context.Context, id string, t payment.Totals) error {
	return r.db.WithContext(ctx).Model(&Booking{}).Where("id = ?", id).Updates(map[string]any{
		"amount_paid":            t.Amount,
		"amount_paid_in_deposit": t.AmountDeposit,
		"amount_paid_in_balance": t.ByGateway[payment.GatewayBalance],
		"amount_paid_in_card":    t.ByGateway[payment.GatewayCard].Add(t.ByGateway[payment.GatewayContract]),
		"amount_paid_in_points":  t.AmountInPoints,
	}).Error
}

// KidsBooked sums kids already holding a place in a store's limit group
// on date.
func (r *Repository) KidsBooked(ctx context.Context, storeID, date, group, excludeID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Booking{}).
		Select("COALESCE(SUM(kids_count), 0)").
		Where("store_id = ? AND date = ? AND limit_group = ? AND scene = ?", storeID, date, group, ScenePlay).
		Where("status IN ?", []Status{StatusPending, StatusBooked, StatusInService, StatusFinished}).
		Where("id <> ?", excludeID).
		Scan(&total).Error
	return int(total), err
}

// GiftQuantityOrdered sums quantity over a customer's live bookings of a gift.
func (r *Repository) GiftQuantityOrdered(ctx context.Context, customerID, giftID string) (int, error) {
	var rows []Booking
	err := r.db.WithContext(ctx).
		Select("quantity").
		Where("customer_id = ? AND gift_id = ? AND scene = ?", customerID, giftID, SceneGift).
		Where("status NOT IN ?", []Status{StatusCanceled, StatusPendingRefund}).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range rows {
		n += giftQuantity(&rows[i])
	}
	return n, nil
}

func (r *Repository) ListPendingBefore(ctx context.Context, before time.Time) ([]Booking, error) {
	var out []Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, before).
		Find(&out).Error
	return out, err
}

// ListByStatusBeforeDate returns bookings in status dated before date
// (YYYY-MM-DD, compared as text).
func (r *Repository) ListByStatusBeforeDate(ctx context.Context, status Status, date string) ([]Booking, error) {
	var out []Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND date < ?", status, date).
		Order("date").
		Find(&out).Error
	return out, err
}
