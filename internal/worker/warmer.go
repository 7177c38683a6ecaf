// Package worker holds background loops that run alongside the API server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/swaproute/internal/domain"
)

// PriceBatcher resolves prices for many tokens, skipping failures.
type PriceBatcher interface {
	PriceMany(ctx context.Context, tokens []domain.Token) map[string]domain.TokenPrice
}

// PriceWarmer periodically resolves prices for a fixed token list so that
// route enrichment for popular pairs hits the cache.
type PriceWarmer struct {
	prices   PriceBatcher
	tokens   []domain.Token
	interval time.Duration
}

// NewPriceWarmer creates a new PriceWarmer.
func NewPriceWarmer(prices PriceBatcher, tokens []domain.Token, interval time.Duration) *PriceWarmer {
	return &PriceWarmer{
		prices:   prices,
		tokens:   tokens,
		interval: interval,
	}
}

// Run starts the warm loop. It blocks until the context is cancelled.
func (w *PriceWarmer) Run(ctx context.Context) {
	if len(w.tokens) == 0 {
		slog.Info("PriceWarmer: no tokens configured, not starting")
		return
	}
	slog.Info("PriceWarmer: starting", "tokens", len(w.tokens), "interval", w.interval)

	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PriceWarmer: shutting down")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *PriceWarmer) warm(ctx context.Context) {
	got := w.prices.PriceMany(ctx, w.tokens)
	if missing := len(w.tokens) - len(got); missing > 0 {
		slog.Warn("PriceWarmer: some prices unavailable", "resolved", len(got), "missing", missing)
		return
	}
	slog.Debug("PriceWarmer: prices refreshed", "resolved", len(got))
}
