package price

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
)

// platformIDs maps canonical chain ids to CoinGecko asset platform ids.
var platformIDs = map[domain.ChainID]string{
	domain.ChainEthereum:  "ethereum",
	domain.ChainOptimism:  "optimistic-ethereum",
	domain.ChainBSC:       "binance-smart-chain",
	domain.ChainPolygon:   "polygon-pos",
	domain.ChainBase:      "base",
	domain.ChainArbitrum:  "arbitrum-one",
	domain.ChainAvalanche: "avalanche",
	domain.ChainSolana:    "solana",
}

// nativeCoinIDs maps canonical chain ids to the CoinGecko coin id of the native asset.
var nativeCoinIDs = map[domain.ChainID]string{
	domain.ChainEthereum:  "ethereum",
	domain.ChainOptimism:  "ethereum",
	domain.ChainBSC:       "binancecoin",
	domain.ChainPolygon:   "polygon-ecosystem-token",
	domain.ChainBase:      "ethereum",
	domain.ChainArbitrum:  "ethereum",
	domain.ChainAvalanche: "avalanche-2",
	domain.ChainSolana:    "solana",
}

// CoinGeckoClient fetches USD prices from the CoinGecko API. It does not pace
// itself; the Oracle gates calls through its rate limiter.
type CoinGeckoClient struct {
	baseURL string
	http    *httpx.Client
	apiKey  string
	pro     bool
}

// NewCoinGeckoClient creates a new CoinGecko API client. apiKey may be empty.
func NewCoinGeckoClient(baseURL string, client *httpx.Client, apiKey string, pro bool) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		apiKey:  apiKey,
		pro:     pro,
	}
}

// HasAPIKey reports whether requests are authenticated.
func (c *CoinGeckoClient) HasAPIKey() bool {
	return c.apiKey != ""
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// PriceUSD returns the USD price for a token. Native sentinels resolve via the
// chain's native coin id, everything else via the contract-address endpoint.
func (c *CoinGeckoClient) PriceUSD(ctx context.Context, chainID domain.ChainID, address string) (decimal.Decimal, error) {
	if domain.IsNativeAddress(address) {
		coinID, ok := nativeCoinIDs[chainID]
		if !ok {
			return decimal.Zero, fmt.Errorf("coingecko: no native coin for chain %d: %w", chainID, ErrNoPrice)
		}
		return c.fetch(ctx, fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID), coinID)
	}

	platform, ok := platformIDs[chainID]
	if !ok {
		return decimal.Zero, fmt.Errorf("coingecko: unsupported chain %d: %w", chainID, ErrNoPrice)
	}
	key := address
	if !chainID.IsSolana() {
		key = strings.ToLower(address)
	}
	u := fmt.Sprintf("%s/simple/token_price/%s?contract_addresses=%s&vs_currencies=usd",
		c.baseURL, platform, url.QueryEscape(key))
	return c.fetch(ctx, u, key)
}

func (c *CoinGeckoClient) fetch(ctx context.Context, u, key string) (decimal.Decimal, error) {
	body, err := c.http.Get(ctx, u, c.headers())
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko request: %w", err)
	}

	// Parse: {"<id or address>":{"usd":1.0001}}
	usd := gjson.GetBytes(body, gjson.Escape(key)+".usd")
	if !usd.Exists() {
		return decimal.Zero, ErrNoPrice
	}
	price, err := decimal.NewFromString(usd.Raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: unparseable price %q: %w", usd.Raw, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, ErrNoPrice
	}
	return price, nil
}

func (c *CoinGeckoClient) headers() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	if c.pro {
		h.Set("x-cg-pro-api-key", c.apiKey)
	} else {
		h.Set("x-cg-demo-api-key", c.apiKey)
	}
	return h
}
