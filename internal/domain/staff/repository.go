package staff

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/dberr"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, s *Staff) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrPhoneTaken
		}
		return err
	}
	return nil
}

func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Staff, error) {
	var s Staff
	if err := r.db.WithContext(ctx).First(&s, "phone = ?", phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrStaffNotFound
		}
		return nil, err
	}
	return &s, nil
}

// RecordFailure stores the failed attempt count and, once locked, the lock expiry.
func (r *Repository) RecordFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_attempts": attempts}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.WithContext(ctx).Model(&Staff{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) ResetFailures(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Staff{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
}
