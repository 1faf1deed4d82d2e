package customer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Customer struct {
	ID     string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name   string `json:"name" gorm:"type:varchar(128)"`
	Mobile string `json:"mobile" gorm:"type:varchar(32);index"`

	BalanceDeposit decimal.Decimal `json:"balance_deposit" gorm:"type:decimal(12,2);not null;default:0"`
	BalanceReward  decimal.Decimal `json:"balance_reward" gorm:"type:decimal(12,2);not null;default:0"`
	Points         decimal.Decimal `json:"points" gorm:"type:decimal(12,2);not null;default:0"`

	Tags   datatypes.JSONSlice[string] `json:"tags"`
	Covers datatypes.JSONSlice[string] `json:"covers"`

	FirstPlayDate    *string `json:"first_play_date,omitempty" gorm:"type:varchar(10)"`
	FirstPlayStoreID *string `json:"first_play_store_id,omitempty" gorm:"type:varchar(36)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Customer) AddTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return false
		}
	}
	c.Tags = append(c.Tags, tag)
	return true
}

func (c *Customer) AddCover(url string) bool {
	for _, u := range c.Covers {
		if u == url {
			return false
		}
	}
	c.Covers = append(c.Covers, url)
	return true
}

// RecordFirstPlay sets the first play date and store once.
func (c *Customer) RecordFirstPlay(date, storeID string) bool {
	if c.FirstPlayDate != nil {
		return false
	}
	c.FirstPlayDate = &date
	if storeID != "" {
		c.FirstPlayStoreID = &storeID
	}
	return true
}
