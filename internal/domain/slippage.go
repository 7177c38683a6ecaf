package domain

import "github.com/shopspring/decimal"

// SlippageAttempt records one orchestrator run at a given slippage.
type SlippageAttempt struct {
	Slippage float64         `json:"slippage"`
	Route    *RouteResponse  `json:"route,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
	Output   decimal.Decimal `json:"output"`
}

// AutoSlippageResult is the outcome of an auto-slippage request.
type AutoSlippageResult struct {
	Response        RouteResponse     `json:"response"`
	AppliedSlippage float64           `json:"appliedSlippage"`
	Attempts        []SlippageAttempt `json:"attempts"`
	LiquidityUSD    *float64          `json:"liquidityUsd,omitempty"`
}
