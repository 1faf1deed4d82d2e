package card

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

type IssueCardRequest struct {
	CardType      string         `json:"card_type" validate:"required,max=64"`
	CustomerID    string         `json:"customer_id" validate:"omitempty,max=36"`
	Quantity      int            `json:"quantity" validate:"gte=0,lte=100"`
	BalanceGroups []BalanceGroup `json:"balance_groups" validate:"omitempty,dive"`
	IsGift        bool           `json:"is_gift"`
}

type PayCardRequest struct {
	Gateway payment.Gateway `json:"gateway" validate:"omitempty,max=16"`
	// StoreID marks a purchase made at a store's reception.
	StoreID  string           `json:"store_id" validate:"omitempty,max=36"`
	Amount   *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	PayerRef string           `json:"payer_ref" validate:"max=128"`
}

type RefundCardRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
}

type ExtendCardRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
	AddTimes  int        `json:"add_times" validate:"gte=0"`
}
