package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDecomposeBalancesForEveryGatewayAndScene(t *testing.T) {
	gateways := []Gateway{GatewayBalance, GatewayPoints, GatewayCard, GatewayContract, GatewayCoupon, GatewayCash, GatewayWechatPay}
	scenes := []Scene{ScenePlay, SceneEvent, SceneFood, SceneCard, SceneBalance, ScenePeriod, SceneMall}

	for _, g := range gateways {
		for _, s := range scenes {
			p := &Payment{Gateway: g, Scene: s, Amount: d("120.50"), AmountDeposit: d("80.33"), AmountInPoints: d("10")}
			p.Decompose()
			assert.Truef(t, p.Balanced(), "%s/%s unbalanced: debt=%s revenue=%s assets=%s", g, s, p.Debt, p.Revenue, p.Assets)
		}
	}
}

func TestDecomposeCases(t *testing.T) {
	cash := &Payment{Gateway: GatewayCash, Scene: ScenePlay, Amount: d("546")}
	cash.Decompose()
	assert.True(t, cash.Assets.Equal(d("546")))
	assert.True(t, cash.Revenue.Equal(d("546")))
	assert.True(t, cash.Debt.IsZero())

	card := &Payment{Gateway: GatewayCard, Scene: ScenePlay, Amount: d("100")}
	card.Decompose()
	assert.True(t, card.Debt.Equal(d("-100")))
	assert.True(t, card.Revenue.Equal(d("100")))
	assert.True(t, card.Assets.IsZero())

	balance := &Payment{Gateway: GatewayBalance, Scene: ScenePlay, Amount: d("100"), AmountDeposit: d("80")}
	balance.Decompose()
	assert.True(t, balance.Debt.Equal(d("-80")))
	assert.True(t, balance.Revenue.Equal(d("80")))

	purchase := &Payment{Gateway: GatewayWechatPay, Scene: SceneCard, Amount: d("1000")}
	purchase.Decompose()
	assert.True(t, purchase.Assets.Equal(d("1000")))
	assert.True(t, purchase.Debt.Equal(d("1000")))
	assert.True(t, purchase.Revenue.IsZero())
}

func TestNewRefundNegatesServiceCharge(t *testing.T) {
	orig := &Payment{ID: "p1", Gateway: GatewayBalance, Scene: ScenePlay, Amount: d("100"), AmountDeposit: d("80"), Paid: true}
	orig.Decompose()

	r := NewRefund(orig, orig.Amount, decimal.NewFromInt(1))
	require.NotNil(t, r.OriginalID)
	assert.Equal(t, "p1", *r.OriginalID)
	assert.True(t, r.Amount.Equal(d("-100")))
	assert.True(t, r.AmountDeposit.Equal(d("-80")))
	assert.True(t, r.Debt.Equal(orig.Debt.Neg()))
	assert.True(t, r.Revenue.Equal(orig.Revenue.Neg()))
	assert.True(t, r.Balanced())
}

func TestNewRefundProratesPrepaidLiability(t *testing.T) {
	orig := &Payment{ID: "p1", Gateway: GatewayCash, Scene: SceneCard, Amount: d("1000")}
	orig.Decompose()

	// six of ten times left, full refund of the purchase
	r := NewRefund(orig, d("1000"), d("0.6"))
	assert.True(t, r.Assets.Equal(d("-1000")))
	assert.True(t, r.Debt.Equal(d("-600")))
	assert.True(t, r.Revenue.Equal(d("-400")))
	assert.True(t, r.Balanced())

	// refunding only the unused value recognises nothing
	r = NewRefund(orig, d("600"), d("0.6"))
	assert.True(t, r.Revenue.IsZero())
	assert.True(t, r.Balanced())
}

func TestSumSkipsRefundedAndRefundEntries(t *testing.T) {
	orig := "a"
	ps := []Payment{
		{ID: "a", Gateway: GatewayCash, Amount: d("50"), Paid: true, Refunded: true},
		{ID: "b", Gateway: GatewayCash, Amount: d("-50"), Paid: true, OriginalID: &orig},
		{ID: "c", Gateway: GatewayBalance, Amount: d("30"), AmountDeposit: d("20"), Paid: true},
		{ID: "d", Gateway: GatewayWechatPay, Amount: d("10"), Paid: false},
	}
	tot := Sum(ps)
	assert.True(t, tot.Amount.Equal(d("30")))
	assert.True(t, tot.AmountDeposit.Equal(d("20")))
	assert.True(t, tot.ByGateway[GatewayBalance].Equal(d("30")))
}
