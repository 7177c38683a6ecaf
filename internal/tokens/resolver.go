// Package tokens resolves on-chain token metadata needed to scale amounts.
package tokens

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mtlprog/swaproute/internal/domain"
)

// DefaultDecimals is assumed when a token's decimals cannot be resolved.
const DefaultDecimals = 18

const (
	decimalsCacheTTL = 24 * time.Hour
	lookupTimeout    = 5 * time.Second
)

// ChainReader reads token decimals from one chain.
type ChainReader interface {
	Decimals(ctx context.Context, address string) (int, error)
}

// Resolver resolves token decimals through memory cache, database and chain RPC,
// in that order. Resolved values from RPC are persisted when a repository is set.
type Resolver struct {
	cache   *cache.Cache
	repo    Repository
	readers map[domain.ChainID]ChainReader
}

// NewResolver creates a resolver. repo may be nil.
func NewResolver(repo Repository, readers map[domain.ChainID]ChainReader) *Resolver {
	if readers == nil {
		readers = make(map[domain.ChainID]ChainReader)
	}
	return &Resolver{
		cache:   cache.New(decimalsCacheTTL, time.Hour),
		repo:    repo,
		readers: readers,
	}
}

// DecimalsOf returns the token's decimals, or DefaultDecimals when unreachable.
func (r *Resolver) DecimalsOf(ctx context.Context, chainID domain.ChainID, address string) int {
	if domain.IsNativeAddress(address) {
		if info, ok := domain.LookupChain(chainID); ok {
			return info.NativeDecimals
		}
		return DefaultDecimals
	}

	key := domain.TokenKey(chainID, address)
	if v, ok := r.cache.Get(key); ok {
		return v.(int)
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	if r.repo != nil {
		m, err := r.repo.Get(ctx, chainID, address)
		switch {
		case err == nil:
			r.cache.SetDefault(key, m.Decimals)
			return m.Decimals
		case !errors.Is(err, ErrNotFound):
			slog.Warn("token metadata lookup failed", "chain", chainID, "address", address, "error", err)
		}
	}

	reader, ok := r.readers[chainID]
	if !ok {
		slog.Warn("no chain reader, assuming default decimals", "chain", chainID, "address", address, "decimals", DefaultDecimals)
		return DefaultDecimals
	}

	decimals, err := reader.Decimals(ctx, address)
	if err != nil {
		slog.Warn("failed to read token decimals, assuming default", "chain", chainID, "address", address, "error", err)
		return DefaultDecimals
	}

	r.cache.SetDefault(key, decimals)
	if r.repo != nil {
		if err := r.repo.Save(ctx, Metadata{ChainID: chainID, Address: address, Decimals: decimals}); err != nil {
			slog.Warn("failed to persist token metadata", "chain", chainID, "address", address, "error", err)
		}
	}
	return decimals
}

// Preload seeds the memory cache from the repository for the given chains.
func (r *Resolver) Preload(ctx context.Context, chains []domain.ChainID) (int, error) {
	if r.repo == nil {
		return 0, nil
	}
	n := 0
	for _, c := range chains {
		items, err := r.repo.List(ctx, c)
		if err != nil {
			return n, err
		}
		for _, m := range items {
			r.cache.SetDefault(domain.TokenKey(m.ChainID, m.Address), m.Decimals)
			n++
		}
	}
	return n, nil
}
