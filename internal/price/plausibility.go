package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxNonBTCPriceUSD caps any symbol outside the BTC family.
var maxNonBTCPriceUSD = decimal.NewFromInt(200_000)

type priceRange struct {
	min, max decimal.Decimal
}

func rangeOf(lo, hi float64) priceRange {
	return priceRange{min: decimal.NewFromFloat(lo), max: decimal.NewFromFloat(hi)}
}

// plausibleRanges bounds the USD price of major symbols. A primary-tier quote
// outside its range is treated as a miss.
var plausibleRanges = map[string]priceRange{
	"BTC":  rangeOf(1_000, 1_000_000),
	"WBTC": rangeOf(1_000, 1_000_000),
	"ETH":  rangeOf(100, 100_000),
	"WETH": rangeOf(100, 100_000),
	"SOL":  rangeOf(1, 10_000),
	"WSOL": rangeOf(1, 10_000),
	"BNB":  rangeOf(10, 50_000),
	"USDC": rangeOf(0.8, 1.2),
	"USDT": rangeOf(0.8, 1.2),
	"DAI":  rangeOf(0.8, 1.2),
}

// Plausible reports whether price is believable for symbol. Unknown symbols
// only get the non-BTC ceiling; an empty symbol passes.
func Plausible(symbol string, price decimal.Decimal) bool {
	if !price.IsPositive() {
		return false
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return true
	}
	if r, ok := plausibleRanges[sym]; ok {
		return price.GreaterThanOrEqual(r.min) && price.LessThanOrEqual(r.max)
	}
	if strings.Contains(sym, "BTC") {
		return true
	}
	return price.LessThanOrEqual(maxNonBTCPriceUSD)
}
