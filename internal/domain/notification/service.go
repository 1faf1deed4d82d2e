package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
)

// Pusher delivers live events to connected clients.
type Pusher interface {
	Push(channel string, event *WSEvent)
}

// Service renders domain events into customer notifications, stores them
// and pushes them to connected clients.
type Service struct {
	repo   *Repository
	pusher Pusher
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo *Repository, pusher Pusher, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		log:    log.With().Str("component", "NotificationService").Logger(),
		now:    time.Now,
	}
}

// Subscribe hooks the service onto the event bus.
func (s *Service) Subscribe(bus *events.Bus) {
	for _, t := range []events.Type{
		events.BookingPaid,
		events.BookingCheckedIn,
		events.BookingCancelled,
		events.CardActivated,
		events.CardRefunded,
		events.CustomerBalanceChange,
	} {
		bus.Subscribe(t, "notification", s.Handle)
	}
}

// Handle renders and sends the notification for e, if any. Reception
// screens of the event's store get booking events as they happen.
func (s *Service) Handle(ctx context.Context, e events.Event) error {
	if e.StoreID != "" && (e.Type == events.BookingPaid || e.Type == events.BookingCheckedIn) {
		s.push(StoreChannel(e.StoreID), &WSEvent{Type: string(e.Type), Payload: e})
	}

	n := render(e)
	if n == nil || e.CustomerID == "" {
		return nil
	}
	n.CustomerID = e.CustomerID
	n.StoreID = e.StoreID
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store %s notification: %w", n.Type, err)
	}
	s.push(CustomerChannel(n.CustomerID), &WSEvent{Type: "notification", Payload: n})
	s.log.Debug().Str("customer_id", n.CustomerID).Str("type", string(n.Type)).Msg("notification sent")
	return nil
}

func (s *Service) push(channel string, event *WSEvent) {
	if s.pusher == nil {
		return
	}
	s.pusher.Push(channel, event)
}

func render(e events.Event) *Notification {
	data := datatypes.JSONMap{"event_id": e.ID}
	for k, v := range map[string]string{"booking_id": e.BookingID, "card_id": e.CardID, "payment_id": e.PaymentID} {
		if v != "" {
			data[k] = v
		}
	}

	switch e.Type {
	case events.BookingPaid:
		data["amount"] = yuan(e.Amount)
		return &Notification{
			Type:  TypeBookingPaid,
			Title: "Booking confirmed",
			Body:  fmt.Sprintf("Your booking is confirmed. Paid %s.", yuan(e.Amount)),
			Data:  data,
		}
	case events.BookingCheckedIn:
		if e.CardID == "" {
			return nil
		}
		data["amount"] = yuan(e.Amount)
		return &Notification{
			Type:  TypeWriteOff,
			Title: "Card visit used",
			Body:  fmt.Sprintf("One visit worth %s was written off your card at check-in.", yuan(e.Amount)),
			Data:  data,
		}
	case events.CustomerBalanceChange:
		spent := e.Deposit.Add(e.Reward).Neg()
		if !spent.IsPositive() {
			return nil
		}
		data["amount"] = yuan(spent)
		return &Notification{
			Type:  TypeWriteOff,
			Title: "Balance used",
			Body:  fmt.Sprintf("%s was paid from your balance.", yuan(spent)),
			Data:  data,
		}
	case events.BookingCancelled:
		data["amount"] = yuan(e.Amount)
		body := "Your booking has been cancelled."
		if e.Amount.IsPositive() {
			body = fmt.Sprintf("Your booking has been cancelled and %s refunded.", yuan(e.Amount))
		}
		return &Notification{Type: TypeBookingCancelled, Title: "Booking cancelled", Body: body, Data: data}
	case events.CardActivated:
		return &Notification{
			Type:  TypeCardActivated,
			Title: "Card activated",
			Body:  "Your card is ready to use.",
			Data:  data,
		}
	case events.CardRefunded:
		data["amount"] = yuan(e.Amount)
		return &Notification{
			Type:  TypeCardRefunded,
			Title: "Card refunded",
			Body:  fmt.Sprintf("Your card has been refunded, %s returned.", yuan(e.Amount)),
			Data:  data,
		}
	}
	return nil
}

func yuan(d decimal.Decimal) string {
	return "¥" + d.StringFixed(2)
}

func (s *Service) List(ctx context.Context, customerID string, limit, offset int) ([]Notification, int64, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := s.repo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, customerID)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, unread, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, customerID string) (int64, error) {
	return s.repo.CountUnread(ctx, customerID)
}

func (s *Service) MarkAsRead(ctx context.Context, id, customerID string) error {
	return s.repo.MarkAsRead(ctx, id, customerID, s.now())
}

func (s *Service) MarkAllAsRead(ctx context.Context, customerID string) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, customerID, s.now())
}
