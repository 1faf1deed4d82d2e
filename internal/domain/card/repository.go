package card

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

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

func (r *Repository) CreateType(ctx context.Context, ct *CardType) error {
	return r.db.WithContext(ctx).Create(ct).Error
}

// GetType looks a card type up by id or slug.
func (r *Repository) GetType(ctx context.Context, idOrSlug string) (*CardType, error) {
	var ct CardType
	err := r.db.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).First(&ct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCardTypeNotFound
		}
		return nil, err
	}
	return &ct, nil
}

func (r *Repository) Create(ctx context.Context, c *Card) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Card, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*Card, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) get(q *gorm.DB, id string) (*Card, error) {
	var c Card
	if err := q.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCardNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Save(ctx context.Context, c *Card) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// ConsumeTimes atomically takes n times. It never lets times_left go
// below zero.
func (r *Repository) ConsumeTimes(ctx context.Context, id string, n int) error {
	res := r.db.WithContext(ctx).Model(&Card{}).
		Where("id = ? AND times_left >= ?", id, n).
		Update("times_left", gorm.Expr("times_left - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrInsufficientCardTimes
	}
	return nil
}

func (r *Repository) RestoreTimes(ctx context.Context, id string, n int) error {
	return r.db.WithContext(ctx).Model(&Card{}).
		Where("id = ?", id).
		Update("times_left", gorm.Expr("times_left + ?", n)).Error
}

func (r *Repository) ListPendingBefore(ctx context.Context, before time.Time) ([]Card, error) {
	var out []Card
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, before).
		Find(&out).Error
	return out, err
}

// ListStatusDrift returns cards whose stored status may disagree with
// their expiry.
func (r *Repository) ListStatusDrift(ctx context.Context, now time.Time) ([]Card, error) {
	var out []Card
	err := r.db.WithContext(ctx).
		Where("(status = ? AND expires_at IS NOT NULL AND expires_at < ?) OR "+
			"(status = ? AND (expires_at IS NULL OR expires_at >= ?) AND (times_left > 0 OR type = ? OR (type = ? AND times <= 0)))",
			StatusActivated, now, StatusExpired, now, TypePeriod, TypeCoupon).
		Where("type IN ?", []Type{TypeCoupon, TypePeriod, TypeTimes}).
		Find(&out).Error
	return out, err
}
