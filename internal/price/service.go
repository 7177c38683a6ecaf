package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/ratelimit"
)

// ErrNoPrice indicates that no price could be determined.
var ErrNoPrice = errors.New("no price available")

const (
	defaultTierTimeout = 8 * time.Second
	pruneThreshold     = 1024
	priceManyLimit     = 4
)

// Option configures an Oracle.
type Option func(*Oracle)

// WithTierTimeout bounds each individual tier lookup.
func WithTierTimeout(d time.Duration) Option {
	return func(o *Oracle) { o.tierTimeout = d }
}

// WithCacheTTL overrides the 30s price cache lifetime.
func WithCacheTTL(d time.Duration) Option {
	return func(o *Oracle) { o.cache = newPriceCache(d) }
}

// Oracle resolves USD prices through a tiered chain of sources sharing one cache.
// The primary tier is paced by the injected gate; fallbacks are chosen by chain family.
type Oracle struct {
	gate           *ratelimit.Gate
	primary        Source
	evmFallback    Source
	solanaFallback Source

	cache       *priceCache
	group       singleflight.Group
	tierTimeout time.Duration
}

// NewOracle creates a price oracle. Either fallback may be nil.
func NewOracle(gate *ratelimit.Gate, primary, evmFallback, solanaFallback Source, opts ...Option) *Oracle {
	if gate == nil {
		panic("price.NewOracle: gate must not be nil")
	}
	if primary == nil {
		panic("price.NewOracle: primary source must not be nil")
	}
	o := &Oracle{
		gate:           gate,
		primary:        primary,
		evmFallback:    evmFallback,
		solanaFallback: solanaFallback,
		cache:          newPriceCache(cacheTTL),
		tierTimeout:    defaultTierTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PriceOf returns the USD price of a token. Cached answers from any tier are
// served for the cache lifetime; concurrent lookups of one token share a single
// upstream resolution.
func (o *Oracle) PriceOf(ctx context.Context, address string, chainID domain.ChainID, symbol string) (domain.TokenPrice, error) {
	key := cacheKey(chainID, address)
	if cached, ok := o.cache.get(key); ok {
		return cached, nil
	}

	v, err, _ := o.group.Do(key, func() (any, error) {
		if cached, ok := o.cache.get(key); ok {
			return cached, nil
		}
		return o.resolve(ctx, address, chainID, symbol)
	})
	if err != nil {
		return domain.TokenPrice{}, err
	}
	return v.(domain.TokenPrice), nil
}

// PriceMany looks up several tokens concurrently. Tokens without a price are
// omitted from the result, which is keyed by domain.Token.Key.
func (o *Oracle) PriceMany(ctx context.Context, tokens []domain.Token) map[string]domain.TokenPrice {
	var mu sync.Mutex
	result := make(map[string]domain.TokenPrice, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceManyLimit)
	for _, t := range tokens {
		g.Go(func() error {
			p, err := o.PriceOf(gctx, t.Address, t.ChainID, t.Symbol)
			if err != nil {
				slog.Debug("price lookup failed", "token", t.String(), "error", err)
				return nil
			}
			mu.Lock()
			result[t.Key()] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (o *Oracle) resolve(ctx context.Context, address string, chainID domain.ChainID, symbol string) (domain.TokenPrice, error) {
	price, err := o.fromPrimary(ctx, address, chainID, symbol)
	if err == nil {
		return o.store(address, chainID, symbol, price, o.primary.Name()), nil
	}
	slog.Debug("primary price tier missed", "source", o.primary.Name(), "chain", chainID, "address", address, "error", err)

	fallback := o.fallbackFor(chainID)
	if fallback == nil {
		return domain.TokenPrice{}, fmt.Errorf("%s on chain %d: %w", address, chainID, ErrNoPrice)
	}

	tctx, cancel := context.WithTimeout(ctx, o.tierTimeout)
	defer cancel()

	price, err = fallback.PriceUSD(tctx, chainID, address)
	if err != nil {
		slog.Warn("all price tiers failed", "chain", chainID, "address", address, "symbol", symbol, "error", err)
		return domain.TokenPrice{}, fmt.Errorf("%s on chain %d: %w", address, chainID, ErrNoPrice)
	}
	return o.store(address, chainID, symbol, price, fallback.Name()), nil
}

func (o *Oracle) fromPrimary(ctx context.Context, address string, chainID domain.ChainID, symbol string) (decimal.Decimal, error) {
	tctx, cancel := context.WithTimeout(ctx, o.tierTimeout)
	defer cancel()

	if err := o.gate.Wait(tctx); err != nil {
		return decimal.Zero, fmt.Errorf("waiting for %s rate limit: %w", o.primary.Name(), err)
	}
	price, err := o.primary.PriceUSD(tctx, chainID, address)
	if err != nil {
		return decimal.Zero, err
	}
	if !Plausible(symbol, price) {
		slog.Warn("implausible price rejected", "source", o.primary.Name(), "symbol", symbol, "price", price.String())
		return decimal.Zero, ErrNoPrice
	}
	return price, nil
}

func (o *Oracle) fallbackFor(chainID domain.ChainID) Source {
	switch {
	case chainID.IsSolana():
		return o.solanaFallback
	case chainID.IsEVM():
		return o.evmFallback
	default:
		return nil
	}
}

func (o *Oracle) store(address string, chainID domain.ChainID, symbol string, price decimal.Decimal, source string) domain.TokenPrice {
	tp := domain.TokenPrice{
		Address:   address,
		ChainID:   chainID,
		Symbol:    symbol,
		PriceUSD:  price.String(),
		Timestamp: time.Now(),
		Source:    source,
	}
	if o.cache.len() > pruneThreshold {
		o.cache.prune()
	}
	o.cache.set(cacheKey(chainID, address), tp)
	return tp
}
