package kyberswap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/httpx"
	"github.com/mtlprog/swaproute/internal/router"
)

const usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

const routesBody = `{
  "code": 0,
  "message": "successfully",
  "data": {
    "routeSummary": {
      "tokenIn": "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
      "amountIn": "500000000000000000",
      "amountInUsd": "1500.4",
      "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
      "amountOut": "1499100000",
      "amountOutUsd": "1499.05",
      "gasUsd": "2.314",
      "route": [[{"pool": "0xpool", "tokenIn": "0xEeee", "tokenOut": "0xA0b8", "exchange": "uniswapv3"}]]
    },
    "routerAddress": "0x6131B5fae19EA4f9D964eAc0408E4408b66337b5"
  }
}`

func testParams() domain.RouterParams {
	return domain.RouterParams{
		Router:          domain.RouterKyberSwap,
		FromChain:       "ethereum",
		ToChain:         "ethereum",
		FromAddress:     domain.NativeEVMEeee,
		ToAddress:       usdc,
		Amount:          "500000000000000000",
		FromDecimals:    18,
		ToDecimals:      6,
		SlippageValue:   50,
		SlippagePercent: 0.5,
		FromToken:       domain.Token{ChainID: domain.ChainEthereum, Address: domain.NativeEVMZero}.WithDecimals(18),
		ToToken:         domain.Token{ChainID: domain.ChainEthereum, Address: usdc}.WithDecimals(6),
	}
}

func TestQuote(t *testing.T) {
	var path, slippage, clientHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		slippage = r.URL.Query().Get("slippageTolerance")
		clientHeader = r.Header.Get("x-client-id")
		w.Write([]byte(routesBody))
	}))
	defer srv.Close()

	c := New(srv.URL, httpx.NewClient(5*time.Second, 0, time.Millisecond))
	route, err := c.Quote(context.Background(), testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != "/ethereum/api/v1/routes" {
		t.Errorf("path = %s", path)
	}
	if slippage != "50" {
		t.Errorf("slippageTolerance = %s, want 50", slippage)
	}
	if clientHeader == "" {
		t.Error("missing x-client-id header")
	}
	if route.ToToken.Amount != "1499100000" {
		t.Errorf("to amount = %s", route.ToToken.Amount)
	}
	if route.Fees.GasUSD != "2.31" || route.Fees.ProtocolUSD != "0.00" {
		t.Errorf("fees = %+v", route.Fees)
	}
	if route.ExchangeRate != "2998.2" {
		t.Errorf("rate = %s, want 2998.2", route.ExchangeRate)
	}
	if route.FromToken.Token.Address != domain.NativeEVMZero {
		t.Errorf("route should echo the canonical token, got %s", route.FromToken.Token.Address)
	}
	if route.ID == "" || route.Router != domain.RouterKyberSwap {
		t.Errorf("id/router = %q/%s", route.ID, route.Router)
	}
}

func TestQuoteErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":4008,"message":"route not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, httpx.NewClient(5*time.Second, 0, time.Millisecond))
	_, err := c.Quote(context.Background(), testParams())

	var re *domain.RouterError
	if !errors.As(err, &re) {
		t.Fatalf("expected RouterError, got %v", err)
	}
	if re.Code != domain.CodeNoRoute {
		t.Errorf("Code = %s, want NO_ROUTE", re.Code)
	}
}

func TestSupportsChains(t *testing.T) {
	c := New("", nil)
	if !c.SupportsChains(domain.ChainBase, domain.ChainBase) {
		t.Error("expected base same-chain support")
	}
	if c.SupportsChains(domain.ChainBase, domain.ChainArbitrum) {
		t.Error("same-chain router must not serve cross-chain requests")
	}
	if c.SupportsChains(domain.ChainSolana, domain.ChainSolana) {
		t.Error("kyberswap does not serve solana")
	}
}

func TestQuoteRoundsSlippageBasisPoints(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0.29, "29"},
		{0.57, "57"},
		{1.15, "115"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get("slippageTolerance")
				w.Write([]byte(routesBody))
			}))
			defer srv.Close()

			p := testParams()
			p.SlippagePercent = tt.percent
			p.SlippageValue = router.UnitBasisPoints.Convert(tt.percent)

			c := New(srv.URL, httpx.NewClient(5*time.Second, 0, time.Millisecond))
			if _, err := c.Quote(context.Background(), p); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("slippageTolerance for %v%% = %s, want %s", tt.percent, got, tt.want)
			}
		})
	}
}
