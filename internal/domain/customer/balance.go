package customer

import (
	"github.com/shopspring/decimal"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/money"
)

// Balance is deposit plus reward.
func (c *Customer) Balance() decimal.Decimal {
	return c.BalanceDeposit.Add(c.BalanceReward)
}

// DepositBalance adds amountDeposit to the deposit part and the rest of
// balance to the reward part. Negative values reverse an earlier deposit.
func (c *Customer) DepositBalance(balance, amountDeposit decimal.Decimal) {
	c.BalanceDeposit = money.Round2(c.BalanceDeposit.Add(amountDeposit))
	c.BalanceReward = money.Round2(c.BalanceReward.Add(balance.Sub(amountDeposit)))
}

// WriteOffBalance withdraws amount and returns the part taken from deposit.
//
// Without an explicit deposit amount the withdrawal above forceDeposit is
// split by the current deposit/reward ratio. When that leaves the deposit
// share at zero while deposit is available, one cent is taken from deposit.
func (c *Customer) WriteOffBalance(amount, forceDeposit decimal.Decimal, explicitDeposit *decimal.Decimal) (decimal.Decimal, error) {
	if amount.GreaterThan(c.Balance()) {
		return decimal.Zero, errs.ErrInsufficientBalance
	}
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	var dep decimal.Decimal
	if explicitDeposit != nil {
		dep = *explicitDeposit
	} else {
		rest := amount.Sub(forceDeposit)
		prop := decimal.Zero
		if rest.IsPositive() && c.Balance().IsPositive() {
			prop = money.Round2(rest.Mul(c.BalanceDeposit).Div(c.Balance()))
		}
		dep = forceDeposit.Add(prop)
		if forceDeposit.IsZero() && dep.IsZero() && c.BalanceDeposit.IsPositive() {
			dep = money.Cent
		}
	}

	dep = money.Max(decimal.Zero, money.Min(dep, money.Min(amount, c.BalanceDeposit)))
	rew := amount.Sub(dep)
	if rew.GreaterThan(c.BalanceReward) {
		dep = dep.Add(rew.Sub(c.BalanceReward))
		rew = c.BalanceReward
	}

	c.BalanceDeposit = c.BalanceDeposit.Sub(dep)
	c.BalanceReward = c.BalanceReward.Sub(rew)
	return dep, nil
}

func (c *Customer) AddPoints(n decimal.Decimal) {
	c.Points = c.Points.Add(n)
}

func (c *Customer) SpendPoints(n decimal.Decimal) error {
	if n.GreaterThan(c.Points) {
		return errs.ErrInsufficientPoints
	}
	c.Points = c.Points.Sub(n)
	return nil
}

// ReclaimPoints takes back up to n points and returns what was taken.
func (c *Customer) ReclaimPoints(n decimal.Decimal) decimal.Decimal {
	taken := money.Min(n, c.Points)
	if taken.IsNegative() {
		taken = decimal.Zero
	}
	c.Points = c.Points.Sub(taken)
	return taken
}
