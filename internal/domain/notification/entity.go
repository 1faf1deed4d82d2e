package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type is the template a notification was rendered from.
type Type string

const (
	TypeBookingPaid      Type = "booking_paid"      // Customer: booking settled
	TypeWriteOff         Type = "write_off"         // Customer: card times or balance spent
	TypeBookingCancelled Type = "booking_cancelled" // Customer: booking refunded and cancelled
	TypeCardActivated    Type = "card_activated"    // Customer: card bought or granted
	TypeCardRefunded     Type = "card_refunded"     // Customer: card refunded
)

// Notification is one template message sent to a customer.
type Notification struct {
	ID         string            `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID string            `json:"customer_id" gorm:"type:varchar(36);not null;index:idx_notifications_customer_unread"`
	StoreID    string            `json:"store_id,omitempty" gorm:"type:varchar(36);index"`
	Type       Type              `json:"type" gorm:"type:varchar(32);not null"`
	Title      string            `json:"title" gorm:"type:varchar(255);not null"`
	Body       string            `json:"body,omitempty" gorm:"type:text"`
	Data       datatypes.JSONMap `json:"data,omitempty"`
	IsRead     bool              `json:"is_read" gorm:"not null;default:false;index:idx_notifications_customer_unread"`
	ReadAt     *time.Time        `json:"read_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// MarkAsRead marks notification as read with timestamp
func (n *Notification) MarkAsRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}
