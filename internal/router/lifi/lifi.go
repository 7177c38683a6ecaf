// Package lifi adapts the LI.FI cross-chain aggregator to the router capability.
package lifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
	"github.com/mtlprog/swaproute/internal/router"
)

// DefaultBaseURL is the public LI.FI API.
const DefaultBaseURL = "https://li.quest/v1"

var profile = router.Profile{
	Chains: map[domain.ChainID]string{
		domain.ChainEthereum:  "1",
		domain.ChainOptimism:  "10",
		domain.ChainBSC:       "56",
		domain.ChainPolygon:   "137",
		domain.ChainBase:      "8453",
		domain.ChainArbitrum:  "42161",
		domain.ChainAvalanche: "43114",
		domain.ChainSolana:    "1151111081099710",
	},
	NativeAddress: map[domain.ChainID]string{
		domain.ChainEthereum:  domain.NativeEVMZero,
		domain.ChainOptimism:  domain.NativeEVMZero,
		domain.ChainBSC:       domain.NativeEVMZero,
		domain.ChainPolygon:   domain.NativeEVMZero,
		domain.ChainBase:      domain.NativeEVMZero,
		domain.ChainArbitrum:  domain.NativeEVMZero,
		domain.ChainAvalanche: domain.NativeEVMZero,
		domain.ChainSolana:    domain.NativeSolana,
	},
	Slippage:    router.UnitFraction,
	SuppliesUSD: true,
}

// Client quotes cross-chain routes from LI.FI.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

// New creates a LI.FI adapter. apiKey may be empty.
func New(baseURL, apiKey string, client *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    client,
	}
}

func (c *Client) ID() domain.RouterID     { return domain.RouterLiFi }
func (c *Client) Kind() router.Kind       { return router.KindCrossChain }
func (c *Client) Profile() router.Profile { return profile }

func (c *Client) SupportsChains(from, to domain.ChainID) bool {
	return router.SupportsByKind(c.Kind(), profile, from, to)
}

// Quote requests a single-step quote from GET /quote.
func (c *Client) Quote(ctx context.Context, p domain.RouterParams) (domain.RouterRoute, error) {
	q := url.Values{}
	q.Set("fromChain", p.FromChain)
	q.Set("toChain", p.ToChain)
	q.Set("fromToken", p.FromAddress)
	q.Set("toToken", p.ToAddress)
	q.Set("fromAmount", p.Amount)
	q.Set("slippage", strconv.FormatFloat(p.SlippageValue, 'f', -1, 64))
	q.Set("fromAddress", lo.CoalesceOrEmpty(p.Sender, placeholderAddress(p.FromToken.ChainID)))
	q.Set("toAddress", lo.CoalesceOrEmpty(p.Recipient, p.Sender, placeholderAddress(p.ToToken.ChainID)))
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}

	body, err := c.http.Get(ctx, c.baseURL+"/quote?"+q.Encode(), c.headers())
	if err != nil {
		return domain.RouterRoute{}, router.Classify(c.ID(), fmt.Errorf("lifi quote: %w", err))
	}
	return c.parse(p, body)
}

func (c *Client) parse(p domain.RouterParams, body []byte) (domain.RouterRoute, error) {
	res := gjson.ParseBytes(body)
	est := res.Get("estimate")
	toAmount := est.Get("toAmount").String()
	if !est.Exists() || toAmount == "" {
		msg := lo.CoalesceOrEmpty(res.Get("message").String(), "no route in response")
		return domain.RouterRoute{}, router.Classify(c.ID(), fmt.Errorf("lifi: %s", msg))
	}
	fromAmount := lo.CoalesceOrEmpty(est.Get("fromAmount").String(), p.Amount)

	var gas, protocol []string
	est.Get("gasCosts").ForEach(func(_, v gjson.Result) bool {
		gas = append(gas, v.Get("amountUSD").String())
		return true
	})
	est.Get("feeCosts").ForEach(func(_, v gjson.Result) bool {
		protocol = append(protocol, v.Get("amountUSD").String())
		return true
	})

	id := res.Get("id").String()
	if id == "" {
		id = router.RouteID(c.ID(), body)
	}

	return domain.RouterRoute{
		ID:     id,
		Router: c.ID(),
		FromToken: domain.RouteLeg{
			Token:     p.FromToken,
			Amount:    fromAmount,
			AmountUSD: router.USDString(est.Get("fromAmountUSD").String()),
		},
		ToToken: domain.RouteLeg{
			Token:     p.ToToken,
			Amount:    toAmount,
			AmountUSD: router.USDString(est.Get("toAmountUSD").String()),
		},
		Fees: domain.Fees{
			GasUSD:      router.SumUSD(gas...),
			ProtocolUSD: router.SumUSD(protocol...),
		},
		ExchangeRate:             router.ExchangeRate(p, fromAmount, toAmount),
		Slippage:                 p.SlippagePercent,
		EstimatedDurationSeconds: int(est.Get("executionDuration").Int()),
		Raw:                      json.RawMessage(body),
	}, nil
}

func (c *Client) headers() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("x-lifi-api-key", c.apiKey)
	return h
}

// placeholderAddress is used for quote-only requests without a wallet.
func placeholderAddress(chainID domain.ChainID) string {
	if chainID.IsSolana() {
		return domain.NativeSolana
	}
	return "0x0000000000000000000000000000000000000001"
}
