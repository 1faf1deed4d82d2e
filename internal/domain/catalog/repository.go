package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
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

func (r *Repository) CreateStore(ctx context.Context, s *Store) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) CreateEvent(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Repository) CreateGift(ctx context.Context, g *Gift) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *Repository) CreateCoupon(ctx context.Context, c *Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetStore(ctx context.Context, id string) (*Store, error) {
	var s Store
	if err := first(r.db.WithContext(ctx), &s, id, errs.ErrStoreNotFound); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetEvent(ctx context.Context, id string) (*Event, error) {
	var e Event
	if err := first(r.db.WithContext(ctx), &e, id, errs.ErrEventNotFound); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetGift(ctx context.Context, id string) (*Gift, error) {
	var g Gift
	if err := first(r.db.WithContext(ctx), &g, id, errs.ErrGiftNotFound); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) GetCoupon(ctx context.Context, id string) (*Coupon, error) {
	var c Coupon
	if err := first(r.db.WithContext(ctx), &c, id, errs.ErrCouponNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func first(q *gorm.DB, dest any, id string, notFound error) error {
	if err := q.First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return err
	}
	return nil
}

// TakeEventSeats atomically reserves n seats. Untracked events always succeed.
func (r *Repository) TakeEventSeats(ctx context.Context, id string, n int) error {
	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND kids_count_left IS NOT NULL AND kids_count_left >= ?", id, n).
		Update("kids_count_left", gorm.Expr("kids_count_left - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	e, err := r.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.KidsCountLeft == nil {
		return nil
	}
	return errs.ErrEventFull
}

func (r *Repository) ReturnEventSeats(ctx context.Context, id string, n int) error {
	return r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND kids_count_left IS NOT NULL", id).
		Update("kids_count_left", gorm.Expr("kids_count_left + ?", n)).Error
}

// TakeGiftStock atomically removes n items from stock.
func (r *Repository) TakeGiftStock(ctx context.Context, id string, n int) error {
	res := r.db.WithContext(ctx).Model(&Gift{}).
		Where("id = ? AND quantity IS NOT NULL AND quantity >= ?", id, n).
		Update("quantity", gorm.Expr("quantity - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	g, err := r.GetGift(ctx, id)
	if err != nil {
		return err
	}
	if g.Quantity == nil {
		return nil
	}
	return errs.ErrGiftOutOfStock
}

func (r *Repository) ReturnGiftStock(ctx context.Context, id string, n int) error {
	return r.db.WithContext(ctx).Model(&Gift{}).
		Where("id = ? AND quantity IS NOT NULL", id).
		Update("quantity", gorm.Expr("quantity + ?", n)).Error
}
