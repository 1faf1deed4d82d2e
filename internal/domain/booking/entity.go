package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Scene string

const (
	ScenePlay  Scene = "play"
	SceneParty Scene = "party"
	SceneEvent Scene = "event"
	SceneGift  Scene = "gift"
	SceneFood  Scene = "food"
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusBooked        Status = "BOOKED"
	StatusInService     Status = "IN_SERVICE"
	StatusPendingRefund Status = "PENDING_REFUND"
	StatusFinished      Status = "FINISHED"
	StatusCanceled      Status = "CANCELED"
)

// Item is a food line item ordered at a table.
type Item struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Booking struct {
	ID         string `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID string `json:"customer_id,omitempty" gorm:"type:varchar(36);index"`
	StoreID    string `json:"store_id,omitempty" gorm:"type:varchar(36);index:idx_bookings_store_date"`
	Scene      Scene  `json:"scene" gorm:"type:varchar(16);not null"`
	Status     Status `json:"status" gorm:"type:varchar(16);not null;index"`
	Date       string `json:"date" gorm:"type:varchar(10);not null;index:idx_bookings_store_date"`

	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`

	AdultsCount int `json:"adults_count" gorm:"not null;default:0"`
	KidsCount   int `json:"kids_count" gorm:"not null;default:0"`
	SocksCount  int `json:"socks_count" gorm:"not null;default:0"`
	Quantity    int `json:"quantity" gorm:"not null;default:0"`

	CardID   *string `json:"card_id,omitempty" gorm:"type:varchar(36);index"`
	CouponID *string `json:"coupon_id,omitempty" gorm:"type:varchar(36)"`
	EventID  *string `json:"event_id,omitempty" gorm:"type:varchar(36);index"`
	GiftID   *string `json:"gift_id,omitempty" gorm:"type:varchar(36);index"`

	TableID string                    `json:"table_id,omitempty" gorm:"type:varchar(64)"`
	Items   datatypes.JSONSlice[Item] `json:"items,omitempty"`

	// LimitGroup is the store limit bucket the kids count against.
	LimitGroup string `json:"limit_group,omitempty" gorm:"type:varchar(64)"`

	Price               decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	PriceInPoints       decimal.Decimal `json:"price_in_points" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaid          decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaidInDeposit decimal.Decimal `json:"amount_paid_in_deposit" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaidInBalance decimal.Decimal `json:"amount_paid_in_balance" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaidInCard    decimal.Decimal `json:"amount_paid_in_card" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaidInPoints  decimal.Decimal `json:"amount_paid_in_points" gorm:"type:decimal(12,2);not null;default:0"`

	InventoryDeducted bool `json:"-" gorm:"not null;default:false"`
	PointsAwarded     bool `json:"-" gorm:"not null;default:false"`
	CardsRewarded     bool `json:"cards_rewarded" gorm:"not null;default:false"`

	Remarks string `json:"remarks,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b *Booking) customerRef() *string {
	if b.CustomerID == "" {
		return nil
	}
	id := b.CustomerID
	return &id
}

func (b *Booking) storeRef() *string {
	if b.StoreID == "" {
		return nil
	}
	id := b.StoreID
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
