package tokens

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SupplyGetter is the subset of the Solana RPC client used to read mint decimals.
type SupplyGetter interface {
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// SolanaReader reads SPL mint decimals over JSON-RPC.
type SolanaReader struct {
	client SupplyGetter
}

// NewSolanaReader creates a reader over an existing RPC client.
func NewSolanaReader(client SupplyGetter) *SolanaReader {
	return &SolanaReader{client: client}
}

// DialSolana creates a reader for the given RPC endpoint.
func DialSolana(rpcURL string) *SolanaReader {
	return NewSolanaReader(rpc.New(rpcURL))
}

func (r *SolanaReader) Decimals(ctx context.Context, address string) (int, error) {
	mint, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", address, err)
	}

	out, err := r.client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("getting token supply for %s: %w", address, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("empty token supply for %s", address)
	}
	return int(out.Value.Decimals), nil
}
