package notification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/database/dbtest"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/notification"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

type pushed struct {
	channel string
	event   notification.WSEvent
}

type fakePusher struct{ got []pushed }

func (f *fakePusher) Push(channel string, e *notification.WSEvent) {
	f.got = append(f.got, pushed{channel: channel, event: *e})
}

func setup(t *testing.T) (*notification.Service, *fakePusher) {
	t.Helper()
	db := dbtest.Open(t, &notification.Notification{})
	p := &fakePusher{}
	return notification.NewService(notification.NewRepository(db), p, zerolog.Nop()), p
}

func TestHandleRendersTemplates(t *testing.T) {
	cases := []struct {
		name  string
		event events.Event
		want  notification.Type
	}{
		{"paid", events.Event{Type: events.BookingPaid, BookingID: "b1", Amount: decimal.NewFromInt(198)}, notification.TypeBookingPaid},
		{"card write off", events.Event{Type: events.BookingCheckedIn, BookingID: "b1", CardID: "c1", Amount: decimal.NewFromInt(100)}, notification.TypeWriteOff},
		{"balance write off", events.Event{Type: events.CustomerBalanceChange, Deposit: decimal.NewFromInt(-8), Reward: decimal.NewFromInt(-2)}, notification.TypeWriteOff},
		{"cancelled", events.Event{Type: events.BookingCancelled, BookingID: "b1", Amount: decimal.NewFromInt(15)}, notification.TypeBookingCancelled},
		{"card activated", events.Event{Type: events.CardActivated, CardID: "c1"}, notification.TypeCardActivated},
		{"card refunded", events.Event{Type: events.CardRefunded, CardID: "c1", Amount: decimal.NewFromInt(500)}, notification.TypeCardRefunded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, p := setup(t)
			ctx := context.Background()
			tc.event.CustomerID = "cust-1"

			require.NoError(t, svc.Handle(ctx, tc.event))

			list, unread, total, err := svc.List(ctx, "cust-1", 10, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, int64(1), unread)
			assert.Equal(t, int64(1), total)
			assert.Equal(t, tc.want, list[0].Type)
			assert.NotEmpty(t, list[0].Body)

			require.Len(t, p.got, 1)
			assert.Equal(t, notification.CustomerChannel("cust-1"), p.got[0].channel)
			assert.Equal(t, "notification", p.got[0].event.Type)
		})
	}
}

func TestHandleSkipsEventsWithoutTemplate(t *testing.T) {
	svc, p := setup(t)
	ctx := context.Background()

	// A top-up is not a write-off.
	require.NoError(t, svc.Handle(ctx, events.Event{Type: events.CustomerBalanceChange, CustomerID: "cust-1", Deposit: decimal.NewFromInt(100)}))
	// Check-in without a card spends nothing.
	require.NoError(t, svc.Handle(ctx, events.Event{Type: events.BookingCheckedIn, CustomerID: "cust-1"}))
	// Walk-in bookings have nobody to notify.
	require.NoError(t, svc.Handle(ctx, events.Event{Type: events.BookingPaid}))
	require.NoError(t, svc.Handle(ctx, events.Event{Type: events.PaymentSettled, CustomerID: "cust-1"}))

	n, err := svc.UnreadCount(ctx, "cust-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, p.got)
}

func TestHandlePushesBookingEventsToReception(t *testing.T) {
	svc, p := setup(t)
	require.NoError(t, svc.Handle(context.Background(), events.Event{
		Type: events.BookingCheckedIn, StoreID: "s1", BookingID: "b1",
	}))

	require.Len(t, p.got, 1)
	assert.Equal(t, notification.StoreChannel("s1"), p.got[0].channel)
	assert.Equal(t, string(events.BookingCheckedIn), p.got[0].event.Type)
}

func TestMarkAsRead(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Handle(ctx, events.Event{Type: events.CardActivated, CustomerID: "cust-1"}))
	}
	require.NoError(t, svc.Handle(ctx, events.Event{Type: events.CardActivated, CustomerID: "cust-2"}))

	list, _, _, err := svc.List(ctx, "cust-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, svc.MarkAsRead(ctx, list[0].ID, "cust-1"))
	assert.ErrorIs(t, svc.MarkAsRead(ctx, list[0].ID, "cust-2"), errs.ErrNotificationNotFound)

	n, err := svc.UnreadCount(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	updated, err := svc.MarkAllAsRead(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	n, err = svc.UnreadCount(ctx, "cust-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubscribeThroughBus(t *testing.T) {
	svc, _ := setup(t)
	bus := events.NewBus(zerolog.Nop())
	svc.Subscribe(bus)

	bus.Publish(context.Background(), events.Event{Type: events.CardRefunded, CustomerID: "cust-1", Amount: decimal.NewFromInt(10)})
	bus.Wait()

	n, err := svc.UnreadCount(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWebSocketRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := setup(t)
	jwtService := jwt.New("test-secret", time.Hour)
	h := notification.NewHandler(svc, notification.NewHub(zerolog.Nop()), jwtService, nil, zerolog.Nop())

	r := gin.New()
	h.RegisterWebSocket(r)

	for _, url := range []string{"/ws/notifications", "/ws/notifications?token=garbage"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, url)
	}

	staffToken, err := jwtService.GenerateToken("staff-1", jwt.RoleStaff, "")
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/notifications?token="+staffToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
