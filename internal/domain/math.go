package domain

import (
	"github.com/shopspring/decimal"
)

const usdPrecision = 2

// ZeroUSD is the placeholder for USD values that could not be determined.
const ZeroUSD = "0.00"

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeSum adds decimal strings, treating invalid input as zero.
func SafeSum(values ...string) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(SafeParse(v))
	}
	return sum
}

// ToBaseUnits scales a human amount to the token's smallest integer unit, truncating
// any precision below one unit.
func ToBaseUnits(amount decimal.Decimal, decimals int) string {
	return amount.Shift(int32(decimals)).Truncate(0).String()
}

// FromBaseUnits converts a base-unit integer string to a human amount.
func FromBaseUnits(amount string, decimals int) decimal.Decimal {
	return SafeParse(amount).Shift(-int32(decimals))
}

// FormatUSD renders a USD value with two decimal places.
func FormatUSD(d decimal.Decimal) string {
	return d.StringFixed(usdPrecision)
}

// InvertRate returns 1/rate, or "0" when the rate is zero or unparseable.
func InvertRate(rate string) string {
	r := SafeParse(rate)
	if r.IsZero() {
		return "0"
	}
	return decimal.NewFromInt(1).DivRound(r, 18).String()
}

// RelativeDiff returns |a-b| / max(|a|,|b|), or zero when both are zero.
func RelativeDiff(a, b decimal.Decimal) decimal.Decimal {
	hi := decimal.Max(a.Abs(), b.Abs())
	if hi.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(hi)
}
