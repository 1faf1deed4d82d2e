package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scene is what a payment pays for.
type Scene string

const (
	ScenePlay    Scene = "play"
	SceneParty   Scene = "party"
	SceneEvent   Scene = "event"
	SceneGift    Scene = "gift"
	SceneFood    Scene = "food"
	SceneCard    Scene = "card"
	SceneBalance Scene = "balance"
	ScenePeriod  Scene = "period"
	SceneMall    Scene = "mall"
)

// Prepaid scenes sell entitlements; the money stays a liability until consumed.
func (s Scene) Prepaid() bool {
	switch s {
	case SceneCard, SceneBalance, ScenePeriod, SceneMall:
		return true
	}
	return false
}

// Gateway is how a payment is funded.
type Gateway string

const (
	GatewayBalance   Gateway = "balance"
	GatewayPoints    Gateway = "points"
	GatewayCard      Gateway = "card"
	GatewayContract  Gateway = "contract"
	GatewayCoupon    Gateway = "coupon"
	GatewayCash      Gateway = "cash"
	GatewayPos       Gateway = "pos"
	GatewayScan      Gateway = "scan"
	GatewayAlipay    Gateway = "alipay"
	GatewayMall      Gateway = "mall"
	GatewayWechatPay Gateway = "wechatpay"
)

// StoredValue gateways consume a liability the venue already holds.
func (g Gateway) StoredValue() bool {
	switch g {
	case GatewayBalance, GatewayCard, GatewayContract:
		return true
	}
	return false
}

// Async gateways confirm through a notify callback.
func (g Gateway) Async() bool {
	return g == GatewayWechatPay
}

func (g Gateway) Valid() bool {
	switch g {
	case GatewayBalance, GatewayPoints, GatewayCard, GatewayContract, GatewayCoupon,
		GatewayCash, GatewayPos, GatewayScan, GatewayAlipay, GatewayMall, GatewayWechatPay:
		return true
	}
	return false
}

// Payment is an append-only ledger entry. Negative amounts are refunds and
// carry OriginalID.
type Payment struct {
	ID         string  `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID *string `json:"customer_id,omitempty" gorm:"type:varchar(36);index"`
	StoreID    *string `json:"store_id,omitempty" gorm:"type:varchar(36);index"`
	BookingID  *string `json:"booking_id,omitempty" gorm:"type:varchar(36);index"`
	CardID     *string `json:"card_id,omitempty" gorm:"type:varchar(36);index"`
	OriginalID *string `json:"original_id,omitempty" gorm:"type:varchar(36);index"`

	Scene   Scene   `json:"scene" gorm:"type:varchar(16);not null;index"`
	Gateway Gateway `json:"gateway" gorm:"type:varchar(16);not null;index"`
	Title   string  `json:"title" gorm:"type:varchar(255)"`

	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null;default:0"`
	AmountDeposit  decimal.Decimal `json:"amount_deposit" gorm:"type:decimal(12,2);not null;default:0"`
	AmountInPoints decimal.Decimal `json:"amount_in_points" gorm:"type:decimal(12,2);not null;default:0"`
	Times          int             `json:"times" gorm:"not null;default:0"`

	Debt    decimal.Decimal `json:"debt" gorm:"type:decimal(12,2);not null;default:0"`
	Assets  decimal.Decimal `json:"assets" gorm:"type:decimal(12,2);not null;default:0"`
	Revenue decimal.Decimal `json:"revenue" gorm:"type:decimal(12,2);not null;default:0"`

	Paid     bool       `json:"paid" gorm:"not null;default:false;index"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	Refunded bool       `json:"refunded" gorm:"not null;default:false"`

	GatewayRef  string            `json:"gateway_ref,omitempty" gorm:"type:varchar(128);index"`
	GatewayData datatypes.JSONMap `json:"gateway_data,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsRefund reports whether p reverses another payment.
func (p *Payment) IsRefund() bool {
	return p.OriginalID != nil
}

// Charge reports whether p is a paid, non-refunded, non-refund entry.
func (p *Payment) Charge() bool {
	return p.Paid && !p.Refunded && !p.IsRefund()
}
