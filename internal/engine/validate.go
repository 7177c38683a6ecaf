package engine

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Validate checks a request without touching the network.
func Validate(req domain.RouteRequest) error {
	if err := validateToken("fromToken", req.FromToken); err != nil {
		return err
	}
	if err := validateToken("toToken", req.ToToken); err != nil {
		return err
	}

	hasFrom, hasTo := req.FromAmount != "", req.ToAmount != ""
	switch {
	case hasFrom && hasTo:
		return &ValidationError{Field: "amount", Message: "specify either fromAmount or toAmount, not both"}
	case !hasFrom && !hasTo:
		return &ValidationError{Field: "amount", Message: "one of fromAmount or toAmount is required"}
	}

	field, raw := "fromAmount", req.FromAmount
	if hasTo {
		field, raw = "toAmount", req.ToAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return &ValidationError{Field: field, Message: "must be a decimal number"}
	}
	if !amount.IsPositive() {
		return &ValidationError{Field: field, Message: "must be greater than zero"}
	}

	switch req.SlippageMode {
	case "", domain.SlippageFixed:
		if req.Slippage < 0 || req.Slippage > 100 {
			return &ValidationError{Field: "slippage", Message: "must be between 0 and 100 percent"}
		}
	case domain.SlippageAuto:
	default:
		return &ValidationError{Field: "slippageMode", Message: "must be fixed or auto"}
	}

	switch req.Order {
	case "", domain.OrderRecommended, domain.OrderFastest, domain.OrderCheapest:
	default:
		return &ValidationError{Field: "order", Message: "must be RECOMMENDED, FASTEST or CHEAPEST"}
	}

	if req.LiquidityUSD != nil && *req.LiquidityUSD < 0 {
		return &ValidationError{Field: "liquidityUsd", Message: "must not be negative"}
	}
	return nil
}

func validateToken(field string, t domain.Token) error {
	if t.ChainID == 0 {
		return &ValidationError{Field: field, Message: "chain id is required"}
	}
	if t.Address == "" {
		return &ValidationError{Field: field, Message: "address is required"}
	}
	if !domain.ValidAddress(t.ChainID, t.Address) {
		return &ValidationError{Field: field, Message: "address " + t.Address + " is not valid for chain " + t.ChainID.String()}
	}
	if t.Decimals != nil && (*t.Decimals < 0 || *t.Decimals > 255) {
		return &ValidationError{Field: field, Message: "decimals out of range"}
	}
	return nil
}
