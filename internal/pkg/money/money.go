package money

import "github.com/shopspring/decimal"

var (
	Zero = decimal.Zero
	Cent = decimal.New(1, -2)
)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Int converts a count to decimal.
func Int(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// MustParse is for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
