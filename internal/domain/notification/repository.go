package notification

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByCustomer returns the newest notifications first with the total count.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Notification, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&Notification{}).Where("customer_id = ?", customerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Notification
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, err
}

func (r *Repository) CountUnread(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("customer_id = ? AND is_read = ?", customerID, false).
		Count(&n).Error
	return n, err
}

// MarkAsRead flags one of the customer's notifications.
func (r *Repository) MarkAsRead(ctx context.Context, id, customerID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND customer_id = ?", id, customerID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotificationNotFound
	}
	return nil
}

func (r *Repository) MarkAllAsRead(ctx context.Context, customerID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("customer_id = ? AND is_read = ?", customerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
