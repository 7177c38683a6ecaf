package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
)

// dexScreenerChains maps canonical chain ids to DexScreener chain slugs.
var dexScreenerChains = map[domain.ChainID]string{
	domain.ChainEthereum:  "ethereum",
	domain.ChainOptimism:  "optimism",
	domain.ChainBSC:       "bsc",
	domain.ChainPolygon:   "polygon",
	domain.ChainBase:      "base",
	domain.ChainArbitrum:  "arbitrum",
	domain.ChainAvalanche: "avalanche",
	domain.ChainSolana:    "solana",
}

const pairsCacheTTL = 2 * time.Minute

// dexPair is the subset of a DexScreener pair the engine uses.
type dexPair struct {
	ChainID      string
	BaseAddress  string
	QuoteAddress string
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
}

// DexScreenerClient scans on-chain DEX pairs. It serves as the EVM fallback
// price tier and as the engine's liquidity lookup.
type DexScreenerClient struct {
	baseURL string
	http    *httpx.Client
	pairs   *cache.Cache
}

// NewDexScreenerClient creates a new DexScreener client.
func NewDexScreenerClient(baseURL string, client *httpx.Client) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		pairs:   cache.New(pairsCacheTTL, 2*pairsCacheTTL),
	}
}

func (c *DexScreenerClient) Name() string { return "dexscreener" }

// PriceUSD returns a liquidity-weighted average of priceUsd across all pairs
// on the chain where the token is the base asset. EVM chains only.
func (c *DexScreenerClient) PriceUSD(ctx context.Context, chainID domain.ChainID, address string) (decimal.Decimal, error) {
	if !chainID.IsEVM() {
		return decimal.Zero, ErrNoPrice
	}
	slug := dexScreenerChains[chainID]
	address = scannableAddress(chainID, address)

	pairs, err := c.fetchPairs(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}

	weighted := decimal.Zero
	totalLiquidity := decimal.Zero
	for _, p := range pairs {
		if p.ChainID != slug || !strings.EqualFold(p.BaseAddress, address) {
			continue
		}
		if !p.PriceUSD.IsPositive() || !p.LiquidityUSD.IsPositive() {
			continue
		}
		weighted = weighted.Add(p.PriceUSD.Mul(p.LiquidityUSD))
		totalLiquidity = totalLiquidity.Add(p.LiquidityUSD)
	}

	if totalLiquidity.IsZero() {
		return decimal.Zero, ErrNoPrice
	}
	return weighted.Div(totalLiquidity), nil
}

// LiquidityUSD estimates the USD liquidity available between two tokens.
// Same-chain pairs sum the liquidity of pools joining both tokens; when there
// are none, or the tokens are on different chains, the shallower of the two
// tokens' deepest pools is used. Returns nil when nothing is known.
func (c *DexScreenerClient) LiquidityUSD(ctx context.Context, from, to domain.Token) (*float64, error) {
	fromAddr := scannableAddress(from.ChainID, from.Address)
	toAddr := scannableAddress(to.ChainID, to.Address)

	fromPairs, err := c.fetchPairs(ctx, fromAddr)
	if err != nil {
		return nil, fmt.Errorf("fetching pairs for %s: %w", from, err)
	}

	if from.ChainID == to.ChainID {
		slug := dexScreenerChains[from.ChainID]
		direct := decimal.Zero
		for _, p := range fromPairs {
			if p.ChainID != slug {
				continue
			}
			if joins(p, fromAddr, toAddr) {
				direct = direct.Add(p.LiquidityUSD)
			}
		}
		if direct.IsPositive() {
			f, _ := direct.Float64()
			return &f, nil
		}
	}

	toPairs, err := c.fetchPairs(ctx, toAddr)
	if err != nil {
		return nil, fmt.Errorf("fetching pairs for %s: %w", to, err)
	}

	fromDeepest := deepest(fromPairs, dexScreenerChains[from.ChainID], fromAddr)
	toDeepest := deepest(toPairs, dexScreenerChains[to.ChainID], toAddr)
	if fromDeepest.IsZero() || toDeepest.IsZero() {
		return nil, nil
	}
	f, _ := decimal.Min(fromDeepest, toDeepest).Float64()
	return &f, nil
}

func (c *DexScreenerClient) fetchPairs(ctx context.Context, address string) ([]dexPair, error) {
	key := strings.ToLower(address)
	if cached, ok := c.pairs.Get(key); ok {
		return cached.([]dexPair), nil
	}

	body, err := c.http.Get(ctx, fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, address), nil)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}

	var pairs []dexPair
	gjson.GetBytes(body, "pairs").ForEach(func(_, p gjson.Result) bool {
		pairs = append(pairs, dexPair{
			ChainID:      p.Get("chainId").String(),
			BaseAddress:  p.Get("baseToken.address").String(),
			QuoteAddress: p.Get("quoteToken.address").String(),
			PriceUSD:     domain.SafeParse(p.Get("priceUsd").String()),
			LiquidityUSD: domain.SafeParse(p.Get("liquidity.usd").Raw),
		})
		return true
	})

	c.pairs.SetDefault(key, pairs)
	return pairs, nil
}

func joins(p dexPair, a, b string) bool {
	return (strings.EqualFold(p.BaseAddress, a) && strings.EqualFold(p.QuoteAddress, b)) ||
		(strings.EqualFold(p.BaseAddress, b) && strings.EqualFold(p.QuoteAddress, a))
}

func deepest(pairs []dexPair, slug, address string) decimal.Decimal {
	best := decimal.Zero
	for _, p := range pairs {
		if p.ChainID != slug {
			continue
		}
		if !strings.EqualFold(p.BaseAddress, address) && !strings.EqualFold(p.QuoteAddress, address) {
			continue
		}
		if p.LiquidityUSD.GreaterThan(best) {
			best = p.LiquidityUSD
		}
	}
	return best
}

// scannableAddress substitutes the wrapped native token for native sentinels,
// since DEX pools never hold the native asset directly.
func scannableAddress(chainID domain.ChainID, address string) string {
	if !domain.IsNativeAddress(address) {
		return address
	}
	if info, ok := domain.LookupChain(chainID); ok {
		return info.WrappedNative
	}
	return address
}
