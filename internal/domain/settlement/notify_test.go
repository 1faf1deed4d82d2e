package settlement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/database/dbtest"
	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/domain/settlement"
	"github.com/uicestone/minimars-server-sub000/internal/infra/gateway"
)

type mockConfirmer struct{ mock.Mock }

func (m *mockConfirmer) ConfirmPayment(ctx context.Context, paymentID string) error {
	return m.Called(ctx, paymentID).Error(0)
}

type fixture struct {
	router   *settlement.Router
	payments *payment.Repository
	gw       *gateway.Signed
	bookings *mockConfirmer
	cards    *mockConfirmer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &payment.Payment{})
	f := &fixture{
		payments: payment.NewRepository(db),
		gw:       gateway.NewSigned(payment.GatewayWechatPay, "s3cret", "https://pay.test", zerolog.Nop()),
		bookings: &mockConfirmer{},
		cards:    &mockConfirmer{},
	}
	f.router = settlement.NewRouter(f.payments, payment.Providers{payment.GatewayWechatPay: f.gw}, f.bookings, f.cards, zerolog.Nop())
	return f
}

func (f *fixture) payment(t *testing.T, p *payment.Payment) *payment.Payment {
	t.Helper()
	if p.Gateway == "" {
		p.Gateway = payment.GatewayWechatPay
	}
	if p.Scene == "" {
		p.Scene = payment.ScenePlay
	}
	p.Amount = decimal.NewFromInt(100)
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func (f *fixture) notify(t *testing.T, body gateway.NotifyBody) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw, f.gw.Sign(raw)
}

func ptr(s string) *string { return &s }

func TestHandleNotifyRoutesByOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bp := f.payment(t, &payment.Payment{BookingID: ptr("b1"), GatewayRef: "ref-b"})
	cp := f.payment(t, &payment.Payment{CardID: ptr("c1"), GatewayRef: "ref-c"})

	f.bookings.On("ConfirmPayment", mock.Anything, bp.ID).Return(nil).Once()
	f.cards.On("ConfirmPayment", mock.Anything, cp.ID).Return(nil).Once()

	full := decimal.NewFromInt(100)
	raw, sig := f.notify(t, gateway.NotifyBody{PaymentID: bp.ID, Reference: "ref-b", Result: gateway.ResultSuccess, Amount: &full})
	require.NoError(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig))
	raw, sig = f.notify(t, gateway.NotifyBody{PaymentID: cp.ID, Reference: "ref-c", Result: gateway.ResultSuccess})
	require.NoError(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig))

	f.bookings.AssertExpectations(t)
	f.cards.AssertExpectations(t)
}

func TestHandleNotifySkipsPaidAndFailed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	paid := f.payment(t, &payment.Payment{BookingID: ptr("b1"), Paid: true})
	open := f.payment(t, &payment.Payment{BookingID: ptr("b2")})

	raw, sig := f.notify(t, gateway.NotifyBody{PaymentID: paid.ID, Result: gateway.ResultSuccess})
	require.NoError(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig))
	raw, sig = f.notify(t, gateway.NotifyBody{PaymentID: open.ID, Result: "FAIL"})
	require.NoError(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig))

	f.bookings.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestHandleNotifyRejectsBadCallbacks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.payment(t, &payment.Payment{BookingID: ptr("b1"), GatewayRef: "ref-1"})
	cash := f.payment(t, &payment.Payment{BookingID: ptr("b1"), Gateway: payment.GatewayCash})

	raw, _ := f.notify(t, gateway.NotifyBody{PaymentID: p.ID, Result: gateway.ResultSuccess})
	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, "deadbeef"), errs.ErrInvalidSignature)

	raw, sig := f.notify(t, gateway.NotifyBody{PaymentID: p.ID, Reference: "ref-2", Result: gateway.ResultSuccess})
	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig), errs.ErrInvalidNotify)

	short := decimal.NewFromInt(1)
	raw, sig = f.notify(t, gateway.NotifyBody{PaymentID: p.ID, Reference: "ref-1", Result: gateway.ResultSuccess, Amount: &short})
	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig), errs.ErrInvalidNotify)

	raw, sig = f.notify(t, gateway.NotifyBody{PaymentID: cash.ID, Result: gateway.ResultSuccess})
	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig), errs.ErrInvalidNotify)

	raw, sig = f.notify(t, gateway.NotifyBody{PaymentID: "missing", Result: gateway.ResultSuccess})
	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayWechatPay, raw, sig), errs.ErrPaymentNotFound)

	assert.ErrorIs(t, f.router.HandleNotify(ctx, payment.GatewayAlipay, raw, sig), errs.ErrUnknownGateway)
	f.bookings.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestNotifyEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := setup(t)
	p := f.payment(t, &payment.Payment{BookingID: ptr("b1")})
	f.bookings.On("ConfirmPayment", mock.Anything, p.ID).Return(nil).Once()

	r := gin.New()
	settlement.NewHandler(f.router).RegisterWebhookRoutes(r.Group("/api/v1"))

	raw, sig := f.notify(t, gateway.NotifyBody{PaymentID: p.ID, Result: gateway.ResultSuccess})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/wechatpay/notify", strings.NewReader(string(raw)))
	req.Header.Set(gateway.SignatureHeader, sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), gateway.ResultSuccess)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/wechatpay/notify", strings.NewReader(string(raw)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusOK, w.Code)
	f.bookings.AssertExpectations(t)
}
