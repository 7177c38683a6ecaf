// Package autoslippage picks a slippage tolerance from pair liquidity and
// quotes it alongside a looser fallback.
package autoslippage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/engine"
	"github.com/mtlprog/swaproute/internal/scoring"
)

// Tier maps a minimum pair liquidity to a slippage percentage.
type Tier struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	Slippage        float64 `yaml:"slippage"`
}

// DefaultTiers are ordered from deepest to shallowest liquidity.
var DefaultTiers = []Tier{
	{MinLiquidityUSD: 10_000_000, Slippage: 0.5},
	{MinLiquidityUSD: 1_000_000, Slippage: 1},
	{MinLiquidityUSD: 100_000, Slippage: 2},
	{MinLiquidityUSD: 10_000, Slippage: 3},
}

const (
	DefaultFallbackSlippage = 5.0
	DefaultMultiplier       = 2.0
	DefaultMaxSlippage      = 15.0
	liquidityTimeout        = 5 * time.Second
)

// RouteGetter is the route orchestrator.
type RouteGetter interface {
	GetRoute(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error)
}

// LiquidityLookup estimates pair liquidity in USD. A nil result means unknown.
type LiquidityLookup interface {
	LiquidityUSD(ctx context.Context, from, to domain.Token) (*float64, error)
}

// Config tunes the coordinator. Zero values fall back to the defaults.
type Config struct {
	Tiers            []Tier
	FallbackSlippage float64
	Multiplier       float64
	MaxSlippage      float64
	TieThreshold     float64
}

// ExhaustedError is returned when every slippage attempt failed.
type ExhaustedError struct {
	Slippages []float64
	Err       error
}

func (e *ExhaustedError) Error() string {
	tried := lo.Map(e.Slippages, func(s float64, _ int) string {
		return strconv.FormatFloat(s, 'f', -1, 64) + "%"
	})
	return fmt.Sprintf("all slippage attempts failed (tried %s): %v", strings.Join(tried, ", "), e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Coordinator resolves auto-slippage requests through the orchestrator.
type Coordinator struct {
	engine    RouteGetter
	liquidity LiquidityLookup
	cfg       Config
}

// New creates a coordinator. liquidity may be nil.
func New(eng RouteGetter, liquidity LiquidityLookup, cfg Config) *Coordinator {
	if eng == nil {
		panic("autoslippage.New: engine must not be nil")
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers
	}
	if cfg.FallbackSlippage <= 0 {
		cfg.FallbackSlippage = DefaultFallbackSlippage
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.MaxSlippage <= 0 {
		cfg.MaxSlippage = DefaultMaxSlippage
	}
	return &Coordinator{engine: eng, liquidity: liquidity, cfg: cfg}
}

// GetRoute serves both modes: fixed requests pass straight through, auto
// requests are resolved with Resolve.
func (c *Coordinator) GetRoute(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error) {
	if req.SlippageMode != domain.SlippageAuto {
		return c.engine.GetRoute(ctx, req)
	}
	res, err := c.Resolve(ctx, req)
	if err != nil {
		return domain.RouteResponse{}, err
	}
	return res.Response, nil
}

// Resolve runs the orchestrator concurrently at the liquidity-derived initial
// slippage and at a wider one, and returns the better result.
func (c *Coordinator) Resolve(ctx context.Context, req domain.RouteRequest) (domain.AutoSlippageResult, error) {
	if err := engine.Validate(req); err != nil {
		return domain.AutoSlippageResult{}, err
	}

	liquidity := c.lookupLiquidity(ctx, req)
	slippages := c.Slippages(liquidity)

	attempts := make([]domain.SlippageAttempt, len(slippages))
	var g errgroup.Group
	for i, s := range slippages {
		g.Go(func() error {
			attempts[i] = c.attempt(ctx, req, s)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := lo.Filter(attempts, func(a domain.SlippageAttempt, _ int) bool { return a.Err == nil })
	if len(succeeded) == 0 {
		return domain.AutoSlippageResult{Attempts: attempts, LiquidityUSD: liquidity},
			&ExhaustedError{Slippages: slippages, Err: attempts[len(attempts)-1].Err}
	}

	opts := scoring.Options{TieThreshold: c.cfg.TieThreshold}
	best := succeeded[0]
	for _, a := range succeeded[1:] {
		if scoring.Compare(candidate(a), candidate(best), opts) < 0 {
			best = a
		}
	}

	resp := *best.Route
	resp.Route.Slippage = best.Slippage
	for i := range resp.Alternates {
		resp.Alternates[i].Slippage = best.Slippage
	}

	slog.Info("auto slippage resolved",
		"request_id", resp.RequestID,
		"applied", best.Slippage,
		"tried", slippages,
		"liquidity_usd", lo.FromPtrOr(liquidity, -1),
	)
	return domain.AutoSlippageResult{
		Response:        resp,
		AppliedSlippage: best.Slippage,
		Attempts:        attempts,
		LiquidityUSD:    liquidity,
	}, nil
}

// Slippages returns the attempt plan for a liquidity estimate: the initial
// tier value and, when distinct, the widened one.
func (c *Coordinator) Slippages(liquidity *float64) []float64 {
	initial := InitialSlippage(liquidity, c.cfg.Tiers, c.cfg.FallbackSlippage)
	second := math.Min(initial*c.cfg.Multiplier, c.cfg.MaxSlippage)
	if second <= initial {
		return []float64{initial}
	}
	return []float64{initial, second}
}

// InitialSlippage picks the first tier whose liquidity floor is met.
// Unknown liquidity gets the fallback.
func InitialSlippage(liquidity *float64, tiers []Tier, fallback float64) float64 {
	if liquidity == nil {
		return fallback
	}
	for _, t := range tiers {
		if *liquidity >= t.MinLiquidityUSD {
			return t.Slippage
		}
	}
	return fallback
}

func (c *Coordinator) lookupLiquidity(ctx context.Context, req domain.RouteRequest) *float64 {
	if req.LiquidityUSD != nil {
		return req.LiquidityUSD
	}
	if c.liquidity == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, liquidityTimeout)
	defer cancel()

	liq, err := c.liquidity.LiquidityUSD(ctx, req.FromToken, req.ToToken)
	if err != nil {
		slog.Warn("liquidity lookup failed", "from", req.FromToken.String(), "to", req.ToToken.String(), "error", err)
		return nil
	}
	return liq
}

func (c *Coordinator) attempt(ctx context.Context, req domain.RouteRequest, slippage float64) domain.SlippageAttempt {
	r := req
	r.SlippageMode = domain.SlippageFixed
	r.Slippage = slippage

	resp, err := c.engine.GetRoute(ctx, r)
	if err != nil {
		slog.Warn("slippage attempt failed", "slippage", slippage, "error", err)
		return domain.SlippageAttempt{Slippage: slippage, Err: err, Error: err.Error()}
	}
	return domain.SlippageAttempt{
		Slippage: slippage,
		Route:    &resp,
		Output:   domain.SafeParse(resp.Route.ToToken.Amount),
	}
}

// candidate is the ranking view of an attempt. Reversed routes all deliver
// the requested amount, so they rank by the smaller required input instead.
func candidate(a domain.SlippageAttempt) scoring.Candidate {
	route := a.Route.Route
	score := a.Output
	if route.Reversed {
		score = domain.SafeParse(route.FromToken.Amount).Neg()
	}
	return scoring.Candidate{ID: route.ID, Output: score, Slippage: a.Slippage}
}
