package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/swaproute/internal/autoslippage"
	"github.com/mtlprog/swaproute/internal/config"
	"github.com/mtlprog/swaproute/internal/database"
	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/engine"
	"github.com/mtlprog/swaproute/internal/httpx"
	"github.com/mtlprog/swaproute/internal/price"
	"github.com/mtlprog/swaproute/internal/ratelimit"
	"github.com/mtlprog/swaproute/internal/router"
	"github.com/mtlprog/swaproute/internal/router/jupiter"
	"github.com/mtlprog/swaproute/internal/router/kyberswap"
	"github.com/mtlprog/swaproute/internal/router/lifi"
	"github.com/mtlprog/swaproute/internal/tokens"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const httpTimeout = 20 * time.Second

// services is the wired application graph shared by all commands.
type services struct {
	pool        *pgxpool.Pool
	oracle      *price.Oracle
	resolver    *tokens.Resolver
	engine      *engine.Engine
	coordinator *autoslippage.Coordinator
}

func (s *services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func setupLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func build(ctx context.Context, cfg config.Config) (*services, error) {
	s := &services{}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		s.pool = pool
	} else {
		slog.Warn("DATABASE_URL not set, token metadata is kept in memory only")
	}

	httpClient := httpx.NewClient(httpTimeout, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay)

	// Price oracle
	gateInterval := cfg.CoinGeckoDelay
	if cfg.CoinGeckoAPIKey != "" {
		gateInterval = cfg.CoinGeckoDelayWithKey
	}
	dexscreener := price.NewDexScreenerClient(cfg.DexScreenerURL, httpClient)
	s.oracle = price.NewOracle(
		ratelimit.NewGate(gateInterval),
		price.NewCoinGeckoClient(cfg.CoinGeckoURL, httpClient, cfg.CoinGeckoAPIKey, cfg.CoinGeckoPro),
		dexscreener,
		price.NewJupiterPriceClient(cfg.JupiterPriceURL, httpClient),
	)

	// Decimals resolver
	readers := make(map[domain.ChainID]tokens.ChainReader)
	for chainID, url := range cfg.EVMRPCURLs {
		reader, err := tokens.DialEVM(ctx, url)
		if err != nil {
			slog.Warn("EVM RPC unavailable, decimals will default", "chain", chainID, "error", err)
			continue
		}
		readers[chainID] = reader
	}
	if cfg.SolanaRPCURL != "" {
		readers[domain.ChainSolana] = tokens.DialSolana(cfg.SolanaRPCURL)
	}
	var repo tokens.Repository
	if s.pool != nil {
		repo = tokens.NewPgRepository(s.pool)
	}
	s.resolver = tokens.NewResolver(repo, readers)

	registry, err := buildRegistry(cfg, httpClient)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.engine = engine.New(registry, router.NewTransformer(s.resolver), s.oracle, engine.Config{
		RouterTimeout:      cfg.RouterTimeout,
		RouterTimeouts:     cfg.Routers.Timeouts(),
		QuoteValidity:      cfg.QuoteValidity,
		PlatformFeePercent: cfg.PlatformFeePercent,
		TieThreshold:       cfg.TieThreshold,
	})
	s.coordinator = autoslippage.New(s.engine, dexscreener, autoslippage.Config{
		Tiers:        cfg.Routers.Tiers,
		TieThreshold: cfg.TieThreshold,
	})
	return s, nil
}

func buildRegistry(cfg config.Config, httpClient *httpx.Client) (*router.Registry, error) {
	candidates := []router.Capability{
		lifi.New(cfg.Routers.BaseURL(domain.RouterLiFi, cfg.LiFiURL), cfg.LiFiAPIKey, httpClient),
		kyberswap.New(cfg.Routers.BaseURL(domain.RouterKyberSwap, cfg.KyberSwapURL), httpClient),
		jupiter.New(cfg.Routers.BaseURL(domain.RouterJupiter, cfg.JupiterQuoteURL), httpClient),
	}

	registry, err := router.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if !cfg.Routers.IsEnabled(c.ID()) {
			slog.Info("router disabled by settings", "router", c.ID())
			continue
		}
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering router %s: %w", c.ID(), err)
		}
	}
	if len(registry.IDs()) == 0 {
		return nil, errors.New("no routers enabled")
	}
	slog.Info("routers registered", "routers", registry.IDs())
	return registry, nil
}
