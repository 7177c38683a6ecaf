package domain

import "time"

// TokenPrice is a USD price observation for a token.
type TokenPrice struct {
	Address   string    `json:"address"`
	ChainID   ChainID   `json:"chainId"`
	Symbol    string    `json:"symbol,omitempty"`
	PriceUSD  string    `json:"priceUsd"`
	Timestamp time.Time `json:"timestamp"`
	// Source names the tier that produced the price: "coingecko", "dexscreener" or "jupiter".
	Source string `json:"source"`
}
