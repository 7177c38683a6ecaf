package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mtlprog/swaproute/internal/domain"
)

const (
	wethEth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	pepeEth = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"
)

const pepePairs = `{"pairs":[
  {"chainId":"ethereum","baseToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933"},"quoteToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},"priceUsd":"2","liquidity":{"usd":100}},
  {"chainId":"ethereum","baseToken":{"address":"0x6982508145454ce325ddbe47a25d4ec3d2311933"},"quoteToken":{"address":"0xdAC17F958D2ee523a2206206994597C13D831ec7"},"priceUsd":"4","liquidity":{"usd":300}},
  {"chainId":"bsc","baseToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933"},"quoteToken":{"address":"0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"},"priceUsd":"100","liquidity":{"usd":1000000}},
  {"chainId":"ethereum","baseToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},"quoteToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933"},"priceUsd":"3000","liquidity":{"usd":50}}
]}`

func newDexScreenerServer(t *testing.T, bodies map[string]string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		addr := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/latest/dex/tokens/"))
		body, ok := bodies[addr]
		if !ok {
			body = `{"pairs":null}`
		}
		w.Write([]byte(body))
	}))
}

func TestDexScreenerWeightedPrice(t *testing.T) {
	srv := newDexScreenerServer(t, map[string]string{strings.ToLower(pepeEth): pepePairs}, nil)
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, testHTTPClient())
	price, err := c.PriceUSD(context.Background(), domain.ChainEthereum, pepeEth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (2*100 + 4*300) / 400; bsc pair and the pair quoting the token are ignored.
	if price.String() != "3.5" {
		t.Errorf("price = %s, want 3.5", price)
	}
}

func TestDexScreenerNoPairs(t *testing.T) {
	srv := newDexScreenerServer(t, nil, nil)
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, testHTTPClient())
	_, err := c.PriceUSD(context.Background(), domain.ChainEthereum, pepeEth)
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestDexScreenerSkipsSolana(t *testing.T) {
	c := NewDexScreenerClient("http://unused", testHTTPClient())
	_, err := c.PriceUSD(context.Background(), domain.ChainSolana, domain.WrappedSOLMint)
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestDexScreenerLiquiditySameChain(t *testing.T) {
	var calls atomic.Int32
	srv := newDexScreenerServer(t, map[string]string{strings.ToLower(pepeEth): pepePairs}, &calls)
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, testHTTPClient())
	from := domain.Token{ChainID: domain.ChainEthereum, Address: pepeEth}
	to := domain.Token{ChainID: domain.ChainEthereum, Address: domain.NativeEVMZero}

	liq, err := c.LiquidityUSD(context.Background(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Native sentinel is scanned as WETH: two ethereum pools join PEPE/WETH.
	if liq == nil || *liq != 150 {
		t.Fatalf("liquidity = %v, want 150", liq)
	}

	if _, err := c.LiquidityUSD(context.Background(), from, to); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (pairs cached)", got)
	}
}

func TestDexScreenerLiquidityUnknown(t *testing.T) {
	srv := newDexScreenerServer(t, map[string]string{strings.ToLower(pepeEth): pepePairs}, nil)
	defer srv.Close()

	c := NewDexScreenerClient(srv.URL, testHTTPClient())
	from := domain.Token{ChainID: domain.ChainEthereum, Address: pepeEth}
	to := domain.Token{ChainID: domain.ChainArbitrum, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"}

	liq, err := c.LiquidityUSD(context.Background(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if liq != nil {
		t.Errorf("liquidity = %v, want nil", *liq)
	}
}
