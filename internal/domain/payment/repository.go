package payment

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

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetForUpdate loads the payment with a row lock.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]Payment, error) {
	var out []Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

func (r *Repository) ListByCard(ctx context.Context, cardID string) ([]Payment, error) {
	var out []Payment
	err := r.db.WithContext(ctx).
		Where("card_id = ? AND booking_id IS NULL", cardID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// MarkPaid flips paid false->true. It reports false when the payment was
// already paid so callers can skip side effects.
func (r *Repository) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]any{"paid": true, "paid_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkRefunded flags a source payment once its refund entry exists.
func (r *Repository) MarkRefunded(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND refunded = ?", id, false).
		Update("refunded", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrAlreadyRefunded
	}
	return nil
}

// UpdateGateway stores the provider reference and payload of a pending payment.
func (r *Repository) UpdateGateway(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"gateway_ref": p.GatewayRef, "gateway_data": p.GatewayData}).Error
}

// ListUnpaidBefore returns async charges still waiting for confirmation.
func (r *Repository) ListUnpaidBefore(ctx context.Context, gateway Gateway, before time.Time) ([]Payment, error) {
	var out []Payment
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND paid = ? AND created_at < ?", gateway, false, before).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
