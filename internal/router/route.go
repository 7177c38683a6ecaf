package router

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
)

const ratePrecision = 18

// ExchangeRate returns output per unit of input in human units, or "0" when
// the input is zero.
func ExchangeRate(p domain.RouterParams, fromAmount, toAmount string) string {
	in := domain.FromBaseUnits(fromAmount, p.FromDecimals)
	out := domain.FromBaseUnits(toAmount, p.ToDecimals)
	if in.IsZero() {
		return "0"
	}
	return out.DivRound(in, ratePrecision).String()
}

// RouteID derives a stable route id from the router and its raw quote.
func RouteID(id domain.RouterID, raw []byte) string {
	return string(id) + "-" + uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
}

// SumUSD adds USD strings and formats the result with two decimals.
func SumUSD(values ...string) string {
	return domain.FormatUSD(domain.SafeSum(values...))
}

// USDString formats a decimal USD amount, returning nil for empty input so
// the engine knows to price the leg itself.
func USDString(raw string) *string {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	s := domain.FormatUSD(d)
	return &s
}
