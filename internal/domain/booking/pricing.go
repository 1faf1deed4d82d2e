package booking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/money"
)

// PriceInput is a booking with its references already resolved.
type PriceInput struct {
	Booking *Booking
	Venue   *config.Venue
	Store   *catalog.Store
	Card    *card.Card
	Coupon  *catalog.Coupon
	Event   *catalog.Event
	Gift    *catalog.Gift
}

type PriceResult struct {
	Price         decimal.Decimal `json:"price"`
	PriceInPoints decimal.Decimal `json:"price_in_points"`
	Coupon        *catalog.Coupon `json:"coupon,omitempty"`
}

// CalculatePrice prices a booking without touching storage.
func CalculatePrice(in PriceInput) (PriceResult, error) {
	if in.Booking == nil {
		return PriceResult{}, errs.ErrInvalidParameters
	}
	st, err := strategyFor(in.Booking.Scene)
	if err != nil {
		return PriceResult{}, err
	}
	res, err := st.price(in)
	if err != nil {
		return PriceResult{}, err
	}
	res.Price = money.Round2(res.Price)
	res.PriceInPoints = money.Round2(res.PriceInPoints)
	res.Coupon = in.Coupon
	return res, nil
}

func pricePlay(in PriceInput) (PriceResult, error) {
	b, v := in.Booking, in.Venue
	if v == nil || in.Store == nil {
		return PriceResult{}, fmt.Errorf("play booking needs store and venue config: %w", errs.ErrInvalidParameters)
	}

	kidPrice := v.KidFullDayPrice
	if v.HolidayKidFullDayPrice != nil && v.OffDay(b.Date) {
		kidPrice = *v.HolidayKidFullDayPrice
	}
	if in.Store.KidFullDayPrice != nil {
		kidPrice = *in.Store.KidFullDayPrice
	}
	parentPrice := v.ExtraParentFullDayPrice
	if in.Store.ExtraParentFullDayPrice != nil {
		parentPrice = *in.Store.ExtraParentFullDayPrice
	}
	freeParents := v.FreeParentsPerKid
	if in.Store.FreeParentsPerKid != nil {
		freeParents = *in.Store.FreeParentsPerKid
	}

	kids, adults := b.KidsCount, b.AdultsCount
	if kids < 0 || adults < 0 {
		return PriceResult{}, errs.ErrInvalidParameters
	}

	var price decimal.Decimal
	if in.Coupon != nil {
		extra := max(0, adults-kids*in.Coupon.FreeParentsPerKid)
		price = parentPrice.Mul(money.Int(extra)).Add(in.Coupon.Price.Mul(money.Int(kids)))
	} else {
		// Coupon cards discount the total instead, even when they carry times.
		if c := in.Card; c != nil && (c.Type == card.TypeTimes || c.Type == card.TypePeriod) {
			covered := kids
			if c.MaxKids > 0 && covered > c.MaxKids {
				covered = c.MaxKids
			}
			kids -= covered
			adults = max(0, adults-covered*c.FreeParentsPerKid)
		}
		extra := max(0, adults-kids*freeParents)
		price = parentPrice.Mul(money.Int(extra)).Add(kidPrice.Mul(money.Int(kids)))
	}

	if in.Card != nil && in.Card.Type == card.TypeCoupon {
		price = applyDiscount(price, in.Card.Discount)
	}
	if b.SocksCount > 0 {
		price = price.Add(v.SockPrice.Mul(money.Int(b.SocksCount)))
	}
	return PriceResult{Price: price}, nil
}

func priceEvent(in PriceInput) (PriceResult, error) {
	if in.Event == nil {
		return PriceResult{}, nil
	}
	kids := money.Int(in.Booking.KidsCount)
	return PriceResult{
		Price:         in.Event.Price.Mul(kids),
		PriceInPoints: in.Event.PriceInPoints.Mul(kids),
	}, nil
}

func priceGift(in PriceInput) (PriceResult, error) {
	if in.Gift == nil {
		return PriceResult{}, nil
	}
	q := money.Int(giftQuantity(in.Booking))
	return PriceResult{
		Price:         in.Gift.Price.Mul(q),
		PriceInPoints: in.Gift.PriceInPoints.Mul(q),
	}, nil
}

func priceFood(in PriceInput) (PriceResult, error) {
	b := in.Booking
	if b.TableID != "" && len(b.Items) > 0 {
		if in.Venue == nil {
			return PriceResult{}, fmt.Errorf("table order needs venue config: %w", errs.ErrInvalidParameters)
		}
		return PriceResult{Price: in.Venue.TableOrderPrice}, nil
	}

	price := b.Price
	if len(b.Items) > 0 {
		price = decimal.Zero
		for _, it := range b.Items {
			price = price.Add(it.Price.Mul(money.Int(it.Quantity)))
		}
	}
	if in.Card != nil && in.Card.Type == card.TypeCoupon {
		price = applyDiscount(price, in.Card.Discount)
	}
	return PriceResult{Price: price}, nil
}

func priceParty(in PriceInput) (PriceResult, error) {
	return PriceResult{Price: in.Booking.Price, PriceInPoints: in.Booking.PriceInPoints}, nil
}

// applyDiscount applies a coupon card's rule. overPrice gates every rule;
// a fixed price wins over a subtracted amount, which wins over a rate.
func applyDiscount(price decimal.Decimal, d card.Discount) decimal.Decimal {
	if d.OverPrice != nil && price.LessThan(*d.OverPrice) {
		return price
	}
	switch {
	case d.FixedPrice != nil:
		return *d.FixedPrice
	case d.DiscountPrice != nil:
		return money.Max(decimal.Zero, price.Sub(*d.DiscountPrice))
	case d.DiscountRate != nil:
		return price.Mul(*d.DiscountRate)
	}
	return price
}

func giftQuantity(b *Booking) int {
	if b.Quantity < 1 {
		return 1
	}
	return b.Quantity
}
