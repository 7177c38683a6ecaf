package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mtlprog/swaproute/internal/domain"
)

func TestJupiterPriceNativeUsesWrappedMint(t *testing.T) {
	var gotIDs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		w.Write([]byte(`{"data":{"So11111111111111111111111111111111111111112":{"id":"So11111111111111111111111111111111111111112","price":"142.31"}}}`))
	}))
	defer srv.Close()

	c := NewJupiterPriceClient(srv.URL, testHTTPClient())
	price, err := c.PriceUSD(context.Background(), domain.ChainSolana, domain.NativeSolana)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotIDs != domain.WrappedSOLMint {
		t.Errorf("ids = %q, want wrapped SOL mint", gotIDs)
	}
	if price.String() != "142.31" {
		t.Errorf("price = %s, want 142.31", price)
	}
}

func TestJupiterPriceMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v":null}}`))
	}))
	defer srv.Close()

	c := NewJupiterPriceClient(srv.URL, testHTTPClient())
	_, err := c.PriceUSD(context.Background(), domain.ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestJupiterPriceSkipsEVM(t *testing.T) {
	c := NewJupiterPriceClient("http://unused", testHTTPClient())
	_, err := c.PriceUSD(context.Background(), domain.ChainEthereum, usdcEth)
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}
