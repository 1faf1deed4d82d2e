package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GroupLimit caps kids per weekday (index 0 is Sunday) for a limit group.
type GroupLimit struct {
	Group  string `json:"group"`
	Limits [7]int `json:"limits"`
}

// DateLimit overrides the weekday cap on a single date.
type DateLimit struct {
	Date  string `json:"date"`
	Group string `json:"group"`
	Limit int    `json:"limit"`
}

type DailyLimit struct {
	Common []GroupLimit `json:"common"`
	Dates  []DateLimit  `json:"dates"`
}

// Store is a venue location. Pricing overrides fall back to the venue config.
type Store struct {
	ID      string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name    string `json:"name" gorm:"type:varchar(128);not null"`
	Address string `json:"address" gorm:"type:varchar(255)"`

	KidFullDayPrice         *decimal.Decimal `json:"kid_full_day_price,omitempty" gorm:"type:decimal(12,2)"`
	ExtraParentFullDayPrice *decimal.Decimal `json:"extra_parent_full_day_price,omitempty" gorm:"type:decimal(12,2)"`
	FreeParentsPerKid       *int             `json:"free_parents_per_kid,omitempty"`

	DailyLimit datatypes.JSONType[DailyLimit] `json:"daily_limit"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Store) TableName() string { return "stores" }

func (s *Store) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Event struct {
	ID            string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	StoreID       string          `json:"store_id" gorm:"type:varchar(36);index"`
	Title         string          `json:"title" gorm:"type:varchar(255);not null"`
	Date          string          `json:"date" gorm:"type:varchar(10)"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	PriceInPoints decimal.Decimal `json:"price_in_points" gorm:"type:decimal(12,2);not null;default:0"`
	KidsCountMax  *int            `json:"kids_count_max,omitempty"`
	// KidsCountLeft is nil when seats are not tracked.
	KidsCountLeft *int `json:"kids_count_left,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

type Gift struct {
	ID            string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title         string          `json:"title" gorm:"type:varchar(255);not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	PriceInPoints decimal.Decimal `json:"price_in_points" gorm:"type:decimal(12,2);not null;default:0"`
	// Quantity is nil when stock is not tracked.
	Quantity               *int   `json:"quantity,omitempty"`
	MaxQuantityPerCustomer int    `json:"max_quantity_per_customer" gorm:"not null;default:0"`
	TagCustomer            string `json:"tag_customer,omitempty" gorm:"type:varchar(64)"`
	IsProfileCover         bool   `json:"is_profile_cover" gorm:"not null;default:false"`
	CoverURL               string `json:"cover_url,omitempty" gorm:"type:varchar(512)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Gift) TableName() string { return "gifts" }

func (g *Gift) BeforeCreate(_ *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// Coupon is a third-party voucher (group-buy platforms etc.).
type Coupon struct {
	ID                string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title             string                      `json:"title" gorm:"type:varchar(255);not null"`
	Price             decimal.Decimal             `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	PriceThirdParty   decimal.Decimal             `json:"price_third_party" gorm:"type:decimal(12,2);not null;default:0"`
	KidsCount         int                         `json:"kids_count" gorm:"not null;default:1"`
	FreeParentsPerKid int                         `json:"free_parents_per_kid" gorm:"not null;default:0"`
	RewardCardTypes   datatypes.JSONSlice[string] `json:"reward_card_types"`
	Start             *time.Time                  `json:"start,omitempty"`
	End               *time.Time                  `json:"end,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
