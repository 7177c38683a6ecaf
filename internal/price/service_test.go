package price

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/ratelimit"
)

const usdcEth = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

type mockSource struct {
	name  string
	price decimal.Decimal
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) PriceUSD(ctx context.Context, _ domain.ChainID, _ string) (decimal.Decimal, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	return m.price, m.err
}

func newTestOracle(primary, evm, sol Source, opts ...Option) *Oracle {
	return NewOracle(ratelimit.NewGate(0), primary, evm, sol, opts...)
}

func TestPriceOfPrimary(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.RequireFromString("1.0001")}
	o := newTestOracle(primary, nil, nil)

	p, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PriceUSD != "1.0001" {
		t.Errorf("PriceUSD = %q, want 1.0001", p.PriceUSD)
	}
	if p.Source != "coingecko" {
		t.Errorf("Source = %q, want coingecko", p.Source)
	}
}

func TestPriceOfCacheIdempotence(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(1)}
	o := newTestOracle(primary, nil, nil)

	for range 5 {
		if _, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Address case does not create a second entry.
	if _, err := o.PriceOf(context.Background(), "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", domain.ChainEthereum, "USDC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := primary.calls.Load(); got != 1 {
		t.Errorf("primary calls = %d, want 1", got)
	}
}

func TestPriceOfConcurrentLookupsCollapse(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(1), delay: 50 * time.Millisecond}
	o := newTestOracle(primary, nil, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := primary.calls.Load(); got != 1 {
		t.Errorf("primary calls = %d, want 1", got)
	}
}

func TestPriceOfFallbackByChain(t *testing.T) {
	tests := []struct {
		name       string
		chain      domain.ChainID
		address    string
		wantSource string
	}{
		{"evm uses dexscreener", domain.ChainArbitrum, usdcEth, "dexscreener"},
		{"solana uses jupiter", domain.ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "jupiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &mockSource{name: "coingecko", err: ErrNoPrice}
			evm := &mockSource{name: "dexscreener", price: decimal.NewFromInt(1)}
			sol := &mockSource{name: "jupiter", price: decimal.NewFromInt(1)}
			o := newTestOracle(primary, evm, sol)

			p, err := o.PriceOf(context.Background(), tt.address, tt.chain, "USDC")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", p.Source, tt.wantSource)
			}
		})
	}
}

func TestPriceOfImplausiblePrimaryFallsThrough(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(5)}
	evm := &mockSource{name: "dexscreener", price: decimal.RequireFromString("0.9998")}
	o := newTestOracle(primary, evm, nil)

	p, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Source != "dexscreener" || p.PriceUSD != "0.9998" {
		t.Errorf("got %s from %s, want 0.9998 from dexscreener", p.PriceUSD, p.Source)
	}
}

func TestPriceOfAllTiersFail(t *testing.T) {
	primary := &mockSource{name: "coingecko", err: errors.New("boom")}
	evm := &mockSource{name: "dexscreener", err: ErrNoPrice}
	o := newTestOracle(primary, evm, nil)

	_, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC")
	if !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}

	// Failures are not cached.
	primary.err = nil
	primary.price = decimal.NewFromInt(1)
	if _, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC"); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
}

func TestPriceOfTierTimeout(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(1), delay: time.Second}
	o := newTestOracle(primary, nil, nil, WithTierTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := o.PriceOf(context.Background(), usdcEth, domain.ChainEthereum, "USDC")
	if !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("lookup took %v, want tier timeout to apply", elapsed)
	}
}

func TestPriceOfCacheExpiry(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(1)}
	o := newTestOracle(primary, nil, nil, WithCacheTTL(10*time.Millisecond))

	ctx := context.Background()
	if _, err := o.PriceOf(ctx, usdcEth, domain.ChainEthereum, "USDC"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := o.PriceOf(ctx, usdcEth, domain.ChainEthereum, "USDC"); err != nil {
		t.Fatal(err)
	}
	if got := primary.calls.Load(); got != 2 {
		t.Errorf("primary calls = %d, want 2", got)
	}
}

func TestPriceMany(t *testing.T) {
	primary := &mockSource{name: "coingecko", price: decimal.NewFromInt(1)}
	o := newTestOracle(primary, nil, nil)

	tokens := []domain.Token{
		{ChainID: domain.ChainEthereum, Address: usdcEth, Symbol: "USDC"},
		{ChainID: domain.ChainBase, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC"},
	}
	got := o.PriceMany(context.Background(), tokens)
	if len(got) != 2 {
		t.Fatalf("got %d prices, want 2", len(got))
	}
	if _, ok := got[tokens[0].Key()]; !ok {
		t.Errorf("missing price for %s", tokens[0])
	}
}

func TestNewOraclePanicsOnNilPrimary(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewOracle(ratelimit.NewGate(0), nil, nil, nil)
}
