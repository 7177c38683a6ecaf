// Package jupiter adapts the Jupiter Solana swap aggregator to the router capability.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
	"github.com/mtlprog/swaproute/internal/router"
)

// DefaultBaseURL is the public Jupiter swap API.
const DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"

// baseFeeLamports is the Solana signature fee for a single-signer transaction.
const baseFeeLamports = 5000

var profile = router.Profile{
	Chains: map[domain.ChainID]string{
		domain.ChainSolana: "solana",
	},
	NativeAddress: map[domain.ChainID]string{
		domain.ChainSolana: domain.WrappedSOLMint,
	},
	Slippage:  router.UnitBasisPoints,
	NativeGas: true,
}

// Client quotes Solana swaps from Jupiter.
type Client struct {
	baseURL string
	http    *httpx.Client
}

// New creates a Jupiter adapter.
func New(baseURL string, client *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *Client) ID() domain.RouterID     { return domain.RouterJupiter }
func (c *Client) Kind() router.Kind       { return router.KindChainNative }
func (c *Client) Profile() router.Profile { return profile }

func (c *Client) SupportsChains(from, to domain.ChainID) bool {
	return router.SupportsByKind(c.Kind(), profile, from, to)
}

// Quote requests GET /quote in ExactIn mode.
func (c *Client) Quote(ctx context.Context, p domain.RouterParams) (domain.RouterRoute, error) {
	q := url.Values{}
	q.Set("inputMint", p.FromAddress)
	q.Set("outputMint", p.ToAddress)
	q.Set("amount", p.Amount)
	q.Set("slippageBps", router.FormatBasisPoints(p.SlippageValue))
	q.Set("swapMode", "ExactIn")

	body, err := c.http.Get(ctx, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return domain.RouterRoute{}, router.Classify(c.ID(), fmt.Errorf("jupiter quote: %w", err))
	}
	return c.parse(p, body)
}

func (c *Client) parse(p domain.RouterParams, body []byte) (domain.RouterRoute, error) {
	res := gjson.ParseBytes(body)
	if msg := res.Get("error").String(); msg != "" {
		return domain.RouterRoute{}, router.Classify(c.ID(), fmt.Errorf("jupiter: %s", msg))
	}

	toAmount := res.Get("outAmount").String()
	if toAmount == "" || toAmount == "0" {
		return domain.RouterRoute{}, router.Classify(c.ID(), errors.New("jupiter: no route in response"))
	}
	fromAmount := lo.CoalesceOrEmpty(res.Get("inAmount").String(), p.Amount)

	return domain.RouterRoute{
		ID:        router.RouteID(c.ID(), body),
		Router:    c.ID(),
		FromToken: domain.RouteLeg{Token: p.FromToken, Amount: fromAmount},
		ToToken:   domain.RouteLeg{Token: p.ToToken, Amount: toAmount},
		// Priority fees are set at swap-build time; the quote only carries the base fee.
		Fees: domain.Fees{
			GasUSD:      domain.ZeroUSD,
			ProtocolUSD: domain.ZeroUSD,
			GasNative:   strconv.Itoa(baseFeeLamports),
		},
		ExchangeRate: router.ExchangeRate(p, fromAmount, toAmount),
		Slippage:     p.SlippagePercent,
		Raw:          json.RawMessage(body),
	}, nil
}
