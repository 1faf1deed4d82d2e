package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

func newTestGateway() *Signed {
	return NewSigned(payment.GatewayWechatPay, "s3cret", "https://pay.example.com/checkout", zerolog.Nop())
}

func TestInitiate_SignsParams(t *testing.T) {
	g := newTestGateway()
	res, err := g.Initiate(context.Background(), payment.InitiateRequest{
		PaymentID:   "p1",
		Amount:      decimal.RequireFromString("12.5"),
		Description: "play 2024-05-10",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
	assert.Equal(t, "12.50", res.Params["amount"])
	assert.Contains(t, res.Params["pay_url"], "payment_id=p1")
	assert.Len(t, res.Params["signature"], 64)
}

func TestInitiate_RequiresSecret(t *testing.T) {
	g := NewSigned(payment.GatewayWechatPay, "", "", zerolog.Nop())
	_, err := g.Initiate(context.Background(), payment.InitiateRequest{PaymentID: "p1"})
	assert.Error(t, err)
}

func TestParseNotify(t *testing.T) {
	g := newTestGateway()
	ten := decimal.NewFromInt(10)
	raw, err := json.Marshal(NotifyBody{PaymentID: "p1", Reference: "pay-1", Result: ResultSuccess, Amount: &ten})
	require.NoError(t, err)

	n, err := g.ParseNotify(context.Background(), raw, g.Sign(raw))
	require.NoError(t, err)
	assert.Equal(t, "p1", n.PaymentID)
	assert.True(t, n.Success)
	require.NotNil(t, n.Amount)
	assert.True(t, n.Amount.Equal(ten))

	_, err = g.ParseNotify(context.Background(), raw, g.Sign([]byte("tampered")))
	assert.True(t, errors.Is(err, errs.ErrInvalidSignature))

	_, err = g.ParseNotify(context.Background(), raw, "not-hex")
	assert.True(t, errors.Is(err, errs.ErrInvalidSignature))
}

func TestParseNotify_Malformed(t *testing.T) {
	g := newTestGateway()
	raw := []byte(`{"result":"SUCCESS"}`)
	_, err := g.ParseNotify(context.Background(), raw, g.Sign(raw))
	assert.True(t, errors.Is(err, errs.ErrInvalidNotify))

	raw = []byte(`not json`)
	_, err = g.ParseNotify(context.Background(), raw, g.Sign(raw))
	assert.True(t, errors.Is(err, errs.ErrInvalidNotify))
}

func TestRefund(t *testing.T) {
	g := newTestGateway()
	res, err := g.Refund(context.Background(), payment.RefundRequest{
		OriginalRef:     "pay-1",
		RefundPaymentID: "r1",
		OriginalAmount:  decimal.NewFromInt(10),
		RefundAmount:    decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.NotEmpty(t, res.Reference)

	_, err = g.Refund(context.Background(), payment.RefundRequest{RefundPaymentID: "r2", OriginalAmount: decimal.NewFromInt(1), RefundAmount: decimal.NewFromInt(1)})
	assert.Error(t, err)

	_, err = g.Refund(context.Background(), payment.RefundRequest{OriginalRef: "pay-1", RefundPaymentID: "r3", OriginalAmount: decimal.NewFromInt(1), RefundAmount: decimal.NewFromInt(2)})
	assert.Error(t, err)
}
