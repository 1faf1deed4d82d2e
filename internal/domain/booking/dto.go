package booking

import (
	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

type CreateBookingRequest struct {
	// CustomerID is honoured for staff only; customers book for themselves.
	CustomerID  string           `json:"customer_id" validate:"omitempty,max=36"`
	StoreID     string           `json:"store_id" validate:"omitempty,max=36"`
	Scene       Scene            `json:"scene" validate:"required,oneof=play party event gift food"`
	Date        string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AdultsCount int              `json:"adults_count" validate:"gte=0"`
	KidsCount   int              `json:"kids_count" validate:"gte=0"`
	SocksCount  int              `json:"socks_count" validate:"gte=0"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	CardID      string           `json:"card_id" validate:"omitempty,max=36"`
	CouponID    string           `json:"coupon_id" validate:"omitempty,max=36"`
	EventID     string           `json:"event_id" validate:"omitempty,max=36"`
	GiftID      string           `json:"gift_id" validate:"omitempty,max=36"`
	TableID     string           `json:"table_id" validate:"omitempty,max=64"`
	Items       []Item           `json:"items" validate:"omitempty,dive"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Remarks     string           `json:"remarks" validate:"max=1000"`
}

func (r CreateBookingRequest) input(customerID string) CreateInput {
	return CreateInput{
		CustomerID:  customerID,
		StoreID:     r.StoreID,
		Scene:       r.Scene,
		Date:        r.Date,
		AdultsCount: r.AdultsCount,
		KidsCount:   r.KidsCount,
		SocksCount:  r.SocksCount,
		Quantity:    r.Quantity,
		CardID:      r.CardID,
		CouponID:    r.CouponID,
		EventID:     r.EventID,
		GiftID:      r.GiftID,
		TableID:     r.TableID,
		Items:       r.Items,
		Price:       r.Price,
		Remarks:     r.Remarks,
	}
}

type PayBookingRequest struct {
	Gateway        payment.Gateway  `json:"gateway" validate:"omitempty,max=16"`
	UseBalance     bool             `json:"use_balance"`
	AtReception    bool             `json:"at_reception"`
	Amount         *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	AmountInPoints *decimal.Decimal `json:"amount_in_points" validate:"omitempty,gt=0"`
	PayerRef       string           `json:"payer_ref" validate:"max=128"`
}

func (r PayBookingRequest) options() PayOptions {
	return PayOptions{
		Gateway:        r.Gateway,
		UseBalance:     r.UseBalance,
		AtReception:    r.AtReception,
		Amount:         r.Amount,
		AmountInPoints: r.AmountInPoints,
		PayerRef:       r.PayerRef,
	}
}

// BookingResponse is a booking with its ledger entries.
type BookingResponse struct {
	*Booking
	Payments []payment.Payment `json:"payments"`
}
