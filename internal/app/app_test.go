package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/database"
	"github.com/uicestone/minimars-server-sub000/internal/database/dbtest"
	"github.com/uicestone/minimars-server-sub000/internal/domain/booking"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		LockTTL:            time.Second,
		GatewaySecret:      "gw-secret",
		GatewayCheckoutURL: "https://pay.test/checkout",
		InternalToken:      "ops-token",
		SweepInterval:      time.Minute,
	}
	a, err := New(cfg, zerolog.Nop(), dbtest.Open(t, database.Models()...))
	require.NoError(t, err)
	return a
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterPublicEndpoints(t *testing.T) {
	a := newTestApp(t)
	r := a.Router()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/notifications", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/ws/notifications", "", "").Code)

	w := do(r, http.MethodPost, "/api/v1/payments/wechatpay/notify", "", `{"payment_id":"p1","result":"SUCCESS"}`)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestStaffLoginThroughRouter(t *testing.T) {
	a := newTestApp(t)
	r := a.Router()

	_, err := a.Staff.Register(context.Background(), staff.RegisterRequest{
		Name: "Front desk", Phone: "13800000000", Pin: "2580", StoreID: "s1",
	})
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/api/v1/staff/login", "", `{"phone":"13800000000","pin":"2580"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
}

func TestVenueReload(t *testing.T) {
	a := newTestApp(t)
	r := a.Router()

	body := "kidFullDayPrice: \"248\"\nsockPrice: \"15\"\n"
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPut, "/internal/venue", "", body).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/internal/venue", "wrong", body).Code)

	w := do(r, http.MethodPut, "/internal/venue", "ops-token", `kidFullDayPrice: "abc"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "198", a.Venue.Current().KidFullDayPrice.String())

	w = do(r, http.MethodPut, "/internal/venue", "ops-token", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "248", a.Venue.Current().KidFullDayPrice.String())
	assert.Equal(t, "15", a.Venue.Current().SockPrice.String())
}

func TestCustomerPaysPointsPrice(t *testing.T) {
	a := newTestApp(t)
	r := a.Router()
	ctx := context.Background()

	cust := &customer.Customer{Name: "Lily", Mobile: "13800000001", Points: decimal.NewFromInt(150)}
	require.NoError(t, customer.NewRepository(a.DB).Create(ctx, cust))
	g := &catalog.Gift{Title: "Sticker", Price: decimal.NewFromInt(10), PriceInPoints: decimal.NewFromInt(100)}
	require.NoError(t, catalog.NewRepository(a.DB).CreateGift(ctx, g))
	b, err := a.Bookings.Create(ctx, booking.CreateInput{CustomerID: cust.ID, Scene: booking.SceneGift, Date: "2024-05-10", GiftID: g.ID})
	require.NoError(t, err)

	token, err := a.JWT.GenerateToken(cust.ID, jwt.RoleCustomer, "")
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/api/v1/bookings/"+b.ID+"/payments", token, `{"gateway":"points","amount_in_points":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := customer.NewRepository(a.DB).GetByID(ctx, cust.ID)
	require.NoError(t, err)
	assert.True(t, got.Points.Equal(decimal.NewFromInt(50)), "points %s", got.Points)
}
