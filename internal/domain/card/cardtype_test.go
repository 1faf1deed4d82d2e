package card

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var issueNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.Local)

func TestIssueTimesCardScalesByQuantity(t *testing.T) {
	ct := &CardType{ID: "ct1", Slug: "ten", Type: TypeTimes, Times: 10, Price: d("1000"), MaxKids: 2, FreeParentsPerKid: 2}

	c, err := ct.Issue("cust", IssueOptions{Quantity: 3}, issueNow)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, 30, c.Times)
	assert.Equal(t, 30, c.TimesLeft)
	assert.True(t, c.Price.Equal(d("3000")))
	assert.Equal(t, 2, c.MaxKids)
	assert.Equal(t, "ct1", c.CardTypeID)
}

func TestIssueBalanceGroups(t *testing.T) {
	ct := &CardType{
		Type: TypeBalance,
		BalancePriceGroups: []BalancePriceGroup{
			{Balance: d("1200"), Price: d("1000")},
			{Balance: d("600"), Price: d("550")},
		},
	}

	c, err := ct.Issue("cust", IssueOptions{BalanceGroups: []BalanceGroup{
		{Balance: d("1200"), Count: 2},
		{Balance: d("600")},
	}}, issueNow)
	require.NoError(t, err)
	assert.True(t, c.Price.Equal(d("2550")))
	assert.True(t, c.Balance.Equal(d("3000")))

	_, err = ct.Issue("cust", IssueOptions{BalanceGroups: []BalanceGroup{{Balance: d("999")}}}, issueNow)
	assert.ErrorIs(t, err, errs.ErrUnsupportedBalanceGrp)
}

func TestIssueExpiry(t *testing.T) {
	days := 30
	ct := &CardType{Type: TypeCoupon, ExpiresInDays: &days}
	c, err := ct.Issue("cust", IssueOptions{}, issueNow)
	require.NoError(t, err)
	require.NotNil(t, c.ExpiresAt)
	assert.Equal(t, "2024-06-09", c.ExpiresAt.Format("2006-01-02"))
	assert.Equal(t, 23, c.ExpiresAt.Hour())

	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.Local)
	ct = &CardType{Type: TypeTimes, End: &end, ExpiresInDays: &days}
	c, err = ct.Issue("cust", IssueOptions{}, issueNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", c.ExpiresAt.Format("2006-01-02"))
}

func TestIssuePeriodDefaultsWindow(t *testing.T) {
	days := 7
	ct := &CardType{Type: TypePeriod, ExpiresInDays: &days}
	c, err := ct.Issue("cust", IssueOptions{}, issueNow)
	require.NoError(t, err)

	require.NotNil(t, c.Start)
	require.NotNil(t, c.End)
	assert.Equal(t, "2024-05-10", c.Start.Format("2006-01-02"))
	assert.Equal(t, 0, c.Start.Hour())
	assert.True(t, c.End.Equal(*c.ExpiresAt))
}

func TestCorrectStatus(t *testing.T) {
	past := issueNow.Add(-time.Hour)
	future := issueNow.Add(time.Hour)

	c := &Card{Type: TypeTimes, Status: StatusActivated, Times: 10, TimesLeft: 3, ExpiresAt: &future}
	for i := 0; i < 3; i++ {
		c.CorrectStatus(issueNow)
		assert.Equal(t, StatusActivated, c.Status)
	}

	c.TimesLeft = 0
	c.CorrectStatus(issueNow)
	assert.Equal(t, StatusExpired, c.Status)
	c.CorrectStatus(issueNow)
	assert.Equal(t, StatusExpired, c.Status)

	c.TimesLeft = 5
	c.CorrectStatus(issueNow)
	assert.Equal(t, StatusActivated, c.Status)

	c.ExpiresAt = &past
	c.CorrectStatus(issueNow)
	assert.Equal(t, StatusExpired, c.Status)

	period := &Card{Type: TypePeriod, Status: StatusActivated, ExpiresAt: &future}
	period.CorrectStatus(issueNow)
	assert.Equal(t, StatusActivated, period.Status, "period cards ignore times")

	pending := &Card{Type: TypeTimes, Status: StatusPending}
	pending.CorrectStatus(issueNow)
	assert.Equal(t, StatusPending, pending.Status)
}

func TestLiabilityRatio(t *testing.T) {
	c := &Card{Type: TypeTimes, Times: 10, TimesLeft: 6}
	assert.True(t, c.LiabilityRatio().Equal(d("0.6")))

	b := &Card{Type: TypeBalance}
	assert.True(t, b.LiabilityRatio().Equal(d("1")))
}
