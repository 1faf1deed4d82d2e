package booking

import (
	"context"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
)

// CardRewarder issues free cards granted at check-in.
type CardRewarder interface {
	Reward(ctx context.Context, typeRef, customerID string) (*card.Card, error)
}

// VenueProvider returns the pricing snapshot for one operation.
type VenueProvider interface {
	Current() *config.Venue
}
