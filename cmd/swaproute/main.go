package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/swaproute/internal/api"
	"github.com/mtlprog/swaproute/internal/config"
	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/export"
	"github.com/mtlprog/swaproute/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "swaproute",
		Usage: "aggregate and compare token swap routes across routers",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "quote",
				Usage:  "quote one swap and print the best route",
				Flags:  quoteFlags(),
				Action: quote,
			},
			{
				Name:  "price",
				Usage: "print the USD price of a token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "chain", Usage: "chain id or \"solana\"", Required: true},
					&cli.StringFlag{Name: "address", Usage: "token address", Required: true},
					&cli.StringFlag{Name: "symbol", Usage: "token symbol, enables the plausibility check"},
				},
				Action: priceOf,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func load(c *cli.Context) (config.Config, *services, error) {
	cfg := config.Load()
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	svc, err := build(c.Context, cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, svc, nil
}

func serve(c *cli.Context) error {
	cfg, svc, err := load(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	ctx := c.Context

	var preloader api.Preloader
	if svc.pool != nil {
		preloader = svc.resolver
		chains := []domain.ChainID{domain.ChainSolana}
		for id := range cfg.EVMRPCURLs {
			chains = append(chains, id)
		}
		if n, err := svc.resolver.Preload(ctx, chains); err != nil {
			slog.Warn("token metadata preload failed", "error", err)
		} else {
			slog.Info("token metadata preloaded", "tokens", n)
		}
	}

	warmer := worker.NewPriceWarmer(svc.oracle, cfg.WarmTokens, cfg.WarmInterval)
	go warmer.Run(ctx)

	if cfg.AdminAPIKey == "" && preloader != nil {
		slog.Warn("ADMIN_API_KEY not set, preload endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.NewHandler(svc.coordinator, svc.oracle), preloader, cfg.AdminAPIKey)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func quoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from-chain", Required: true},
		&cli.StringFlag{Name: "from-token", Required: true},
		&cli.StringFlag{Name: "to-chain", Required: true},
		&cli.StringFlag{Name: "to-token", Required: true},
		&cli.StringFlag{Name: "amount", Usage: "input amount in token units"},
		&cli.StringFlag{Name: "to-amount", Usage: "desired output amount in token units"},
		&cli.StringFlag{Name: "slippage", Usage: "percent, or \"auto\""},
		&cli.StringFlag{Name: "order", Usage: "RECOMMENDED, FASTEST or CHEAPEST"},
		&cli.StringFlag{Name: "xlsx", Usage: "also write the quote comparison to this XLSX file"},
		&cli.StringFlag{Name: "sheet-id", Usage: "also append the quote comparison to this Google spreadsheet"},
		&cli.StringFlag{Name: "credentials", Usage: "service account JSON file for --sheet-id", EnvVars: []string{"GOOGLE_CREDENTIALS_FILE"}},
	}
}

func quote(c *cli.Context) error {
	q := url.Values{}
	for flag, param := range map[string]string{
		"from-chain": "fromChain", "from-token": "fromToken",
		"to-chain": "toChain", "to-token": "toToken",
		"amount": "fromAmount", "to-amount": "toAmount",
		"slippage": "slippage", "order": "order",
	} {
		if v := c.String(flag); v != "" {
			q.Set(param, v)
		}
	}
	req, err := api.ParseRouteRequest(q)
	if err != nil {
		return err
	}

	_, svc, err := load(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	ctx := c.Context

	writers, closeWriters, err := quoteWriters(ctx, c)
	if err != nil {
		return err
	}
	defer closeWriters()

	resp, err := svc.coordinator.GetRoute(ctx, req)
	if err != nil {
		return err
	}
	for _, w := range writers {
		if err := w.Write(ctx, export.Rows(resp)); err != nil {
			return fmt.Errorf("writing quote comparison: %w", err)
		}
	}
	return printJSON(resp)
}

func quoteWriters(ctx context.Context, c *cli.Context) ([]export.SheetWriter, func(), error) {
	var writers []export.SheetWriter
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				slog.Warn("failed to close export file", "file", f.Name(), "error", err)
			}
		}
	}

	if path := c.String("xlsx"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, closeAll, fmt.Errorf("creating %s: %w", path, err)
		}
		files = append(files, f)
		writers = append(writers, export.NewXLSXWriter(f))
	}
	if id := c.String("sheet-id"); id != "" {
		creds, err := os.ReadFile(c.String("credentials"))
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("reading google credentials: %w", err)
		}
		sw, err := export.NewSheetsWriter(ctx, id, string(creds))
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		writers = append(writers, sw)
	}
	return writers, closeAll, nil
}

func priceOf(c *cli.Context) error {
	chainID, err := domain.ParseChainID(c.String("chain"))
	if err != nil {
		return fmt.Errorf("invalid chain %q: %w", c.String("chain"), err)
	}

	_, svc, err := load(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.oracle.PriceOf(c.Context, c.String("address"), chainID, c.String("symbol"))
	if err != nil {
		return err
	}
	return printJSON(p)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
