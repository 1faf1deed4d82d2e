package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/dates"
)

// BalancePriceGroup is one stored-value denomination a card type sells.
type BalancePriceGroup struct {
	Balance decimal.Decimal `json:"balance"`
	Price   decimal.Decimal `json:"price"`
}

// BalanceGroup is a buyer's selection of a denomination.
type BalanceGroup struct {
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// CardType is the template cards are issued from.
type CardType struct {
	ID         string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Slug       string `json:"slug" gorm:"type:varchar(64);uniqueIndex;not null"`
	Title      string `json:"title" gorm:"type:varchar(255);not null"`
	Type       Type   `json:"type" gorm:"type:varchar(16);not null"`
	IsContract bool   `json:"is_contract" gorm:"not null;default:false"`

	Price   decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Times   int             `json:"times" gorm:"not null;default:0"`
	Balance decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);not null;default:0"`

	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	ExpiresInDays *int       `json:"expires_in_days,omitempty"`

	MaxKids           int `json:"max_kids" gorm:"not null;default:0"`
	FreeParentsPerKid int `json:"free_parents_per_kid" gorm:"not null;default:0"`
	Discount

	StoreIDs           datatypes.JSONSlice[string]            `json:"store_ids"`
	RewardCardTypes    datatypes.JSONSlice[string]            `json:"reward_card_types"`
	BalancePriceGroups datatypes.JSONSlice[BalancePriceGroup] `json:"balance_price_groups"`
	LimitGroup         string                                 `json:"limit_group,omitempty" gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CardType) TableName() string {
	return "card_types"
}

func (ct *CardType) BeforeCreate(_ *gorm.DB) error {
	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	return nil
}

type IssueOptions struct {
	Quantity      int
	BalanceGroups []BalanceGroup
	IsGift        bool
}

// Issue builds a PENDING card for customerID from the template.
func (ct *CardType) Issue(customerID string, opts IssueOptions, now time.Time) (*Card, error) {
	c := &Card{
		CustomerID:        customerID,
		CardTypeID:        ct.ID,
		Slug:              ct.Slug,
		Title:             ct.Title,
		Type:              ct.Type,
		Status:            StatusPending,
		IsGift:            opts.IsGift,
		IsContract:        ct.IsContract,
		Times:             ct.Times,
		Price:             ct.Price,
		Balance:           ct.Balance,
		MaxKids:           ct.MaxKids,
		FreeParentsPerKid: ct.FreeParentsPerKid,
		Discount:          ct.Discount,
		StoreIDs:          append(datatypes.JSONSlice[string]{}, ct.StoreIDs...),
		RewardCardTypes:   append(datatypes.JSONSlice[string]{}, ct.RewardCardTypes...),
		LimitGroup:        ct.LimitGroup,
	}

	if ct.Type == TypeTimes && opts.Quantity > 1 {
		c.Times = ct.Times * opts.Quantity
		c.Price = ct.Price.Mul(decimal.NewFromInt(int64(opts.Quantity)))
	}
	c.TimesLeft = c.Times

	if len(opts.BalanceGroups) > 0 {
		price, balance, err := ct.priceBalanceGroups(opts.BalanceGroups)
		if err != nil {
			return nil, err
		}
		c.Price, c.Balance = price, balance
	}

	if ct.End != nil {
		t := dates.EndOfDay(*ct.End)
		c.ExpiresAt = &t
	} else if ct.ExpiresInDays != nil {
		t := dates.EndOfDay(now.AddDate(0, 0, *ct.ExpiresInDays))
		c.ExpiresAt = &t
	}

	c.Start, c.End = ct.Start, ct.End
	if ct.Type == TypePeriod {
		if c.Start == nil {
			t := dates.StartOfDay(now)
			c.Start = &t
		}
		if c.ExpiresAt != nil {
			t := *c.ExpiresAt
			c.End = &t
		}
	}

	return c, nil
}

func (ct *CardType) priceBalanceGroups(groups []BalanceGroup) (decimal.Decimal, decimal.Decimal, error) {
	price, balance := decimal.Zero, decimal.Zero
	for _, g := range groups {
		count := g.Count
		if count < 1 {
			count = 1
		}
		n := decimal.NewFromInt(int64(count))

		var match *BalancePriceGroup
		for i := range ct.BalancePriceGroups {
			if ct.BalancePriceGroups[i].Balance.Equal(g.Balance) {
				match = &ct.BalancePriceGroups[i]
				break
			}
		}
		if match == nil {
			return decimal.Zero, decimal.Zero, errs.ErrUnsupportedBalanceGrp
		}
		price = price.Add(match.Price.Mul(n))
		balance = balance.Add(match.Balance.Mul(n))
	}
	return price, balance, nil
}
