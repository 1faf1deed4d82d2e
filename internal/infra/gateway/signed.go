package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
)

// SignatureHeader carries the hex HMAC-SHA256 of a notify body.
const SignatureHeader = "X-Gateway-Signature"

const (
	ResultSuccess = "SUCCESS"
	ResultFail    = "FAIL"
)

// NotifyBody is the callback payload a gateway posts back.
type NotifyBody struct {
	PaymentID string           `json:"payment_id"`
	Reference string           `json:"reference"`
	Result    string           `json:"result"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// Signed is a hosted-checkout gateway that signs outgoing parameters and
// verifies callbacks with a shared HMAC secret. Payment and refund outcomes
// arrive through notify.
type Signed struct {
	name     payment.Gateway
	secret   []byte
	checkout string
	log      zerolog.Logger
}

func NewSigned(name payment.Gateway, secret, checkoutURL string, log zerolog.Logger) *Signed {
	return &Signed{
		name:     name,
		secret:   []byte(secret),
		checkout: checkoutURL,
		log:      log.With().Str("component", "Gateway").Str("gateway", string(name)).Logger(),
	}
}

func (g *Signed) Initiate(_ context.Context, req payment.InitiateRequest) (payment.InitiateResult, error) {
	if len(g.secret) == 0 {
		return payment.InitiateResult{}, fmt.Errorf("%s credentials are not configured", g.name)
	}
	ref := "pay-" + uuid.NewString()

	v := url.Values{}
	v.Set("payment_id", req.PaymentID)
	v.Set("reference", ref)
	v.Set("amount", req.Amount.StringFixed(2))
	v.Set("description", req.Description)
	if req.PayerRef != "" {
		v.Set("payer", req.PayerRef)
	}
	sig := g.Sign([]byte(v.Encode()))
	v.Set("signature", sig)

	params := map[string]any{
		"reference": ref,
		"amount":    req.Amount.StringFixed(2),
		"signature": sig,
	}
	if g.checkout != "" {
		params["pay_url"] = g.checkout + "?" + v.Encode()
	}
	g.log.Info().Str("payment_id", req.PaymentID).Str("reference", ref).Str("amount", req.Amount.StringFixed(2)).Msg("payment initiated")
	return payment.InitiateResult{Reference: ref, Params: params}, nil
}

func (g *Signed) Refund(_ context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	if req.OriginalRef == "" {
		return payment.RefundResult{}, fmt.Errorf("refund %s has no original reference", req.RefundPaymentID)
	}
	if req.RefundAmount.GreaterThan(req.OriginalAmount) {
		return payment.RefundResult{}, fmt.Errorf("refund %s exceeds original amount", req.RefundPaymentID)
	}
	ref := "refund-" + uuid.NewString()
	g.log.Info().Str("refund_payment_id", req.RefundPaymentID).Str("original_ref", req.OriginalRef).
		Str("amount", req.RefundAmount.StringFixed(2)).Str("reference", ref).Msg("refund requested")
	return payment.RefundResult{Reference: ref, Accepted: true}, nil
}

func (g *Signed) ParseNotify(_ context.Context, raw []byte, signature string) (*payment.Notification, error) {
	if !g.Verify(raw, signature) {
		g.log.Warn().Msg("notify signature mismatch")
		return nil, errs.ErrInvalidSignature
	}
	var body NotifyBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidNotify, err)
	}
	if body.PaymentID == "" {
		return nil, fmt.Errorf("%w: missing payment_id", errs.ErrInvalidNotify)
	}
	return &payment.Notification{
		PaymentID: body.PaymentID,
		Reference: body.Reference,
		Success:   strings.EqualFold(body.Result, ResultSuccess),
		Amount:    body.Amount,
	}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func (g *Signed) Sign(body []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Signed) Verify(body []byte, signature string) bool {
	want, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(g.secret) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
