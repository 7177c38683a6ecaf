package price

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
)

// JupiterPriceClient is the Solana-native price feed tier.
type JupiterPriceClient struct {
	baseURL string
	http    *httpx.Client
}

// NewJupiterPriceClient creates a new Jupiter price API client.
func NewJupiterPriceClient(baseURL string, client *httpx.Client) *JupiterPriceClient {
	return &JupiterPriceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *JupiterPriceClient) Name() string { return "jupiter" }

// PriceUSD returns the USD price of a Solana mint. Other chains return ErrNoPrice.
func (c *JupiterPriceClient) PriceUSD(ctx context.Context, chainID domain.ChainID, address string) (decimal.Decimal, error) {
	if !chainID.IsSolana() {
		return decimal.Zero, ErrNoPrice
	}
	mint := address
	if domain.IsNativeAddress(mint) {
		mint = domain.WrappedSOLMint
	}

	body, err := c.http.Get(ctx, fmt.Sprintf("%s/price/v2?ids=%s", c.baseURL, mint), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("jupiter price request: %w", err)
	}

	// Parse: {"data":{"<mint>":{"id":"<mint>","type":"derivedPrice","price":"142.31"}}}
	raw := gjson.GetBytes(body, "data."+gjson.Escape(mint)+".price")
	if !raw.Exists() || raw.Type == gjson.Null {
		return decimal.Zero, ErrNoPrice
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("jupiter: unparseable price %q: %w", raw.String(), err)
	}
	if !price.IsPositive() {
		return decimal.Zero, ErrNoPrice
	}
	return price, nil
}
