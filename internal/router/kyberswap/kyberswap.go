// Package kyberswap adapts the KyberSwap aggregator to the router capability.
package kyberswap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
	"github.com/mtlprog/swaproute/internal/router"
)

// DefaultBaseURL is the public KyberSwap aggregator API.
const DefaultBaseURL = "https://aggregator-api.kyberswap.com"

const clientID = "swaproute"

var profile = router.Profile{
	Chains: map[domain.ChainID]string{
		domain.ChainEthereum:  "ethereum",
		domain.ChainOptimism:  "optimism",
		domain.ChainBSC:       "bsc",
		domain.ChainPolygon:   "polygon",
		domain.ChainBase:      "base",
		domain.ChainArbitrum:  "arbitrum",
		domain.ChainAvalanche: "avalanche",
	},
	NativeAddress: lo.SliceToMap([]domain.ChainID{
		domain.ChainEthereum, domain.ChainOptimism, domain.ChainBSC, domain.ChainPolygon,
		domain.ChainBase, domain.ChainArbitrum, domain.ChainAvalanche,
	}, func(id domain.ChainID) (domain.ChainID, string) { return id, domain.NativeEVMEeee }),
	Slippage:    router.UnitBasisPoints,
	SuppliesUSD: true,
}

// Client quotes single-chain EVM routes from KyberSwap.
type Client struct {
	baseURL string
	http    *httpx.Client
}

// New creates a KyberSwap adapter.
func New(baseURL string, client *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *Client) ID() domain.RouterID     { return domain.RouterKyberSwap }
func (c *Client) Kind() router.Kind       { return router.KindSameChain }
func (c *Client) Profile() router.Profile { return profile }

func (c *Client) SupportsChains(from, to domain.ChainID) bool {
	return router.SupportsByKind(c.Kind(), profile, from, to)
}

// Quote requests GET /{chain}/api/v1/routes.
func (c *Client) Quote(ctx context.Context, p domain.RouterParams) (domain.RouterRoute, error) {
	q := url.Values{}
	q.Set("tokenIn", p.FromAddress)
	q.Set("tokenOut", p.ToAddress)
	q.Set("amountIn", p.Amount)
	q.Set("slippageTolerance", router.FormatBasisPoints(p.SlippageValue))
	if p.Recipient != "" {
		q.Set("to", p.Recipient)
	}

	h := http.Header{}
	h.Set("x-client-id", clientID)

	body, err := c.http.Get(ctx, fmt.Sprintf("%s/%s/api/v1/routes?%s", c.baseURL, p.FromChain, q.Encode()), h)
	if err != nil {
		return domain.RouterRoute{}, router.Classify(c.ID(), fmt.Errorf("kyberswap routes: %w", err))
	}
	return c.parse(p, body)
}

func (c *Client) parse(p domain.RouterParams, body []byte) (domain.RouterRoute, error) {
	res := gjson.ParseBytes(body)
	if code := res.Get("code").Int(); code != 0 {
		return domain.RouterRoute{}, router.Classify(c.ID(),
			fmt.Errorf("kyberswap: %s (code %d)", res.Get("message").String(), code))
	}

	summary := res.Get("data.routeSummary")
	toAmount := summary.Get("amountOut").String()
	if !summary.Exists() || toAmount == "" || toAmount == "0" {
		return domain.RouterRoute{}, router.Classify(c.ID(), errors.New("kyberswap: route not found"))
	}
	fromAmount := lo.CoalesceOrEmpty(summary.Get("amountIn").String(), p.Amount)

	// extraFee.feeAmount is charged in the fee token; only the USD total is
	// reported when chargeFeeBy is set.
	protocolUSD := "0"
	if summary.Get("extraFee.chargeFeeBy").String() != "" {
		protocolUSD = summary.Get("extraFee.feeAmountUsd").String()
	}

	return domain.RouterRoute{
		ID:     router.RouteID(c.ID(), body),
		Router: c.ID(),
		FromToken: domain.RouteLeg{
			Token:     p.FromToken,
			Amount:    fromAmount,
			AmountUSD: router.USDString(summary.Get("amountInUsd").String()),
		},
		ToToken: domain.RouteLeg{
			Token:     p.ToToken,
			Amount:    toAmount,
			AmountUSD: router.USDString(summary.Get("amountOutUsd").String()),
		},
		Fees: domain.Fees{
			GasUSD:      router.SumUSD(summary.Get("gasUsd").String()),
			ProtocolUSD: router.SumUSD(protocolUSD),
		},
		ExchangeRate: router.ExchangeRate(p, fromAmount, toAmount),
		Slippage:     p.SlippagePercent,
		Raw:          json.RawMessage(body),
	}, nil
}
