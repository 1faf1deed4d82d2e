package staff

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

// Staff is a reception or admin account. Staff log in with phone and PIN.
type Staff struct {
	ID      string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name    string `json:"name" gorm:"type:varchar(128)"`
	Phone   string `json:"phone" gorm:"type:varchar(32);uniqueIndex;not null"`
	PinHash string `json:"-" gorm:"type:varchar(128);not null"`
	Role    string `json:"role" gorm:"type:varchar(16);not null;default:staff"`
	StoreID string `json:"store_id,omitempty" gorm:"type:varchar(36);index"`
	Active  bool   `json:"active" gorm:"not null;default:true"`

	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s *Staff) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Role == "" {
		s.Role = jwt.RoleStaff
	}
	return nil
}

func (s *Staff) Locked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}
