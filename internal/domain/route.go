package domain

import (
	"encoding/json"
	"time"
)

// SlippageMode selects between a caller-supplied and an engine-chosen slippage.
type SlippageMode string

const (
	SlippageFixed SlippageMode = "fixed"
	SlippageAuto  SlippageMode = "auto"
)

// Order is the caller's route ordering preference, forwarded to routers that support it.
type Order string

const (
	OrderRecommended Order = "RECOMMENDED"
	OrderFastest     Order = "FASTEST"
	OrderCheapest    Order = "CHEAPEST"
)

// RouteRequest is the canonical, router-independent swap request.
// Amounts are human-unit decimal strings ("1.5" ETH, not wei).
type RouteRequest struct {
	FromToken    Token        `json:"fromToken"`
	ToToken      Token        `json:"toToken"`
	FromAmount   string       `json:"fromAmount,omitempty"`
	ToAmount     string       `json:"toAmount,omitempty"`
	Slippage     float64      `json:"slippage"`
	SlippageMode SlippageMode `json:"slippageMode"`
	Recipient    string       `json:"recipient,omitempty"`
	Sender       string       `json:"sender,omitempty"`
	LiquidityUSD *float64     `json:"liquidityUsd,omitempty"`
	Order        Order        `json:"order,omitempty"`
}

// IsReverse reports whether the request is driven by the desired output amount.
func (r RouteRequest) IsReverse() bool {
	return r.ToAmount != "" && r.FromAmount == ""
}

// RouterID names a routing backend. The set is closed: every adapter declares one of these.
type RouterID string

const (
	RouterLiFi      RouterID = "lifi"
	RouterKyberSwap RouterID = "kyberswap"
	RouterJupiter   RouterID = "jupiter"
)

// RouterParams is the router-specific projection of a RouteRequest.
// It is built fresh per router per attempt and never mutated afterwards.
type RouterParams struct {
	Router RouterID

	FromChain   string
	ToChain     string
	FromAddress string
	ToAddress   string

	// Amount is the input amount in the token's smallest unit.
	Amount       string
	FromDecimals int
	ToDecimals   int

	// SlippageValue is in the router's native unit; SlippagePercent is the original value.
	SlippageValue   float64
	SlippagePercent float64

	Order     Order
	Sender    string
	Recipient string

	// FromToken and ToToken are the canonical tokens, echoed into the route legs.
	FromToken Token
	ToToken   Token
}

// RouteLeg is one side of a route. Amount is in base units.
type RouteLeg struct {
	Token     Token   `json:"token"`
	Amount    string  `json:"amount"`
	AmountUSD *string `json:"amountUsd,omitempty"`
}

// Fees is the USD fee breakdown of a route. GasNative carries a gas amount
// denominated in the chain's native asset (base units) for routers that do not report USD.
type Fees struct {
	GasUSD      string `json:"gasUsd"`
	ProtocolUSD string `json:"protocolUsd"`
	PlatformUSD string `json:"platformUsd"`
	TotalUSD    string `json:"totalUsd"`
	GasNative   string `json:"gasNative,omitempty"`
}

// RouterRoute is a priced route quoted by one router.
type RouterRoute struct {
	ID                       string          `json:"id"`
	Router                   RouterID        `json:"router"`
	FromToken                RouteLeg        `json:"fromToken"`
	ToToken                  RouteLeg        `json:"toToken"`
	Fees                     Fees            `json:"fees"`
	ExchangeRate             string          `json:"exchangeRate"`
	Slippage                 float64         `json:"slippage"`
	EstimatedDurationSeconds int             `json:"estimatedDurationSeconds,omitempty"`
	Raw                      json.RawMessage `json:"raw,omitempty"`
	// Reversed is set on routes reconstructed from an output-driven request.
	Reversed bool `json:"reversed,omitempty"`
	// ReverseFallback is set when an output-driven request could not be solved
	// and the desired output token/amount was used as the input instead.
	ReverseFallback bool `json:"reverseFallback,omitempty"`
}

// RouteResponse is the engine's answer to a RouteRequest.
type RouteResponse struct {
	RequestID  string        `json:"requestId"`
	Route      RouterRoute   `json:"route"`
	Alternates []RouterRoute `json:"alternates"`
	Timestamp  time.Time     `json:"timestamp"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	Attempted  []RouterID    `json:"attempted"`
	Errors     []RouterError `json:"errors,omitempty"`
}

// Expired reports whether the quote validity window has passed.
func (r RouteResponse) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
