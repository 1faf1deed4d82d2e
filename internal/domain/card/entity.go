package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeTimes   Type = "times"
	TypePeriod  Type = "period"
	TypeBalance Type = "balance"
	TypeCoupon  Type = "coupon"
	TypePartner Type = "partner"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValid     Status = "VALID"
	StatusActivated Status = "ACTIVATED"
	StatusExpired   Status = "EXPIRED"
	StatusCanceled  Status = "CANCELED"
)

// Discount rules shared by coupon cards and their templates.
type Discount struct {
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty" gorm:"type:decimal(12,2)"`
	DiscountRate  *decimal.Decimal `json:"discount_rate,omitempty" gorm:"type:decimal(6,4)"`
	FixedPrice    *decimal.Decimal `json:"fixed_price,omitempty" gorm:"type:decimal(12,2)"`
	OverPrice     *decimal.Decimal `json:"over_price,omitempty" gorm:"type:decimal(12,2)"`
}

type Card struct {
	ID         string `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID string `json:"customer_id" gorm:"type:varchar(36);not null;index"`
	CardTypeID string `json:"card_type_id" gorm:"type:varchar(36);index"`
	Slug       string `json:"slug" gorm:"type:varchar(64);index"`
	Title      string `json:"title" gorm:"type:varchar(255)"`
	Type       Type   `json:"type" gorm:"type:varchar(16);not null;index"`
	Status     Status `json:"status" gorm:"type:varchar(16);not null;index"`
	IsGift     bool   `json:"is_gift" gorm:"not null;default:false"`
	IsContract bool   `json:"is_contract" gorm:"not null;default:false"`

	Times     int             `json:"times" gorm:"not null;default:0"`
	TimesLeft int             `json:"times_left" gorm:"not null;default:0"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);not null;default:0"`

	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`

	MaxKids           int `json:"max_kids" gorm:"not null;default:0"`
	FreeParentsPerKid int `json:"free_parents_per_kid" gorm:"not null;default:0"`
	Discount

	StoreIDs        datatypes.JSONSlice[string] `json:"store_ids"`
	RewardCardTypes datatypes.JSONSlice[string] `json:"reward_card_types"`
	LimitGroup      string                      `json:"limit_group,omitempty" gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Card) TableName() string {
	return "cards"
}

func (c *Card) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TimesBased cards are consumed per visit.
func (c *Card) TimesBased() bool {
	return c.Type == TypeTimes || (c.Type == TypeCoupon && c.Times > 0)
}

// CorrectStatus flips ACTIVATED and EXPIRED according to remaining times
// and expiry. Other statuses are left alone.
func (c *Card) CorrectStatus(now time.Time) {
	exhausted := c.TimesBased() && c.TimesLeft <= 0
	expired := c.ExpiresAt != nil && now.After(*c.ExpiresAt)

	switch c.Status {
	case StatusActivated:
		if exhausted || expired {
			c.Status = StatusExpired
		}
	case StatusExpired:
		if !exhausted && !expired {
			c.Status = StatusActivated
		}
	}
}

// AvailableIn reports whether the card may be used in store. An empty
// store list means every store.
func (c *Card) AvailableIn(storeID string) bool {
	if len(c.StoreIDs) == 0 {
		return true
	}
	for _, id := range c.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// LiabilityRatio is the unused share of a times card, 1 for other cards.
func (c *Card) LiabilityRatio() decimal.Decimal {
	if !c.TimesBased() || c.Times <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(c.TimesLeft)).Div(decimal.NewFromInt(int64(c.Times)))
}
