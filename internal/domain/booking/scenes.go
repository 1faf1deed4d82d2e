package booking

import (
	"context"

	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

// strategy holds everything that differs between scenes.
type strategy struct {
	price func(PriceInput) (PriceResult, error)
	// paidStatus is the status a fully settled booking moves to.
	// StatusInService means the booking is checked in on the spot.
	paidStatus func(atReception, sameDay bool) Status
	// takeStock and returnStock move event seats or gift stock.
	takeStock   func(ctx context.Context, repo *catalog.Repository, b *Booking) error
	returnStock func(ctx context.Context, repo *catalog.Repository, b *Booking) error
	storeLimit  bool
}

var strategies = map[Scene]strategy{
	ScenePlay: {
		price: pricePlay,
		paidStatus: func(atReception, sameDay bool) Status {
			if atReception && sameDay {
				return StatusInService
			}
			return StatusBooked
		},
		storeLimit: true,
	},
	SceneParty: {
		price:      priceParty,
		paidStatus: func(bool, bool) Status { return StatusBooked },
	},
	SceneEvent: {
		price:      priceEvent,
		paidStatus: finishedAtReception,
		takeStock: func(ctx context.Context, repo *catalog.Repository, b *Booking) error {
			if b.EventID == nil || b.KidsCount == 0 {
				return nil
			}
			return repo.TakeEventSeats(ctx, *b.EventID, b.KidsCount)
		},
		returnStock: func(ctx context.Context, repo *catalog.Repository, b *Booking) error {
			if b.EventID == nil || b.KidsCount == 0 {
				return nil
			}
			return repo.ReturnEventSeats(ctx, *b.EventID, b.KidsCount)
		},
	},
	SceneGift: {
		price:      priceGift,
		paidStatus: finishedAtReception,
		takeStock: func(ctx context.Context, repo *catalog.Repository, b *Booking) error {
			if b.GiftID == nil {
				return nil
			}
			return repo.TakeGiftStock(ctx, *b.GiftID, giftQuantity(b))
		},
		returnStock: func(ctx context.Context, repo *catalog.Repository, b *Booking) error {
			if b.GiftID == nil {
				return nil
			}
			return repo.ReturnGiftStock(ctx, *b.GiftID, giftQuantity(b))
		},
	},
	SceneFood: {
		price:      priceFood,
		paidStatus: func(bool, bool) Status { return StatusFinished },
	},
}

func finishedAtReception(atReception, _ bool) Status {
	if atReception {
		return StatusFinished
	}
	return StatusBooked
}

func strategyFor(s Scene) (strategy, error) {
	st, ok := strategies[s]
	if !ok {
		return strategy{}, errs.ErrUnsupportedScene
	}
	return st, nil
}

func (s Scene) Valid() bool {
	_, ok := strategies[s]
	return ok
}
