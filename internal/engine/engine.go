// Package engine aggregates quotes from the registered routers into one
// enriched best route.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/router"
	"github.com/mtlprog/swaproute/internal/scoring"
)

const (
	DefaultRouterTimeout      = 15 * time.Second
	DefaultQuoteValidity      = 60 * time.Second
	DefaultPriceTimeout       = 10 * time.Second
	DefaultPlatformFeePercent = 0.25
)

// Routers lists routers eligible for a chain pair.
type Routers interface {
	Eligible(from, to domain.ChainID) []router.Capability
}

// ParamTransformer builds router-native parameters.
type ParamTransformer interface {
	Transform(ctx context.Context, req domain.RouteRequest, c router.Capability) (domain.RouterParams, error)
}

// PriceOracle resolves USD prices for enrichment.
type PriceOracle interface {
	PriceOf(ctx context.Context, address string, chainID domain.ChainID, symbol string) (domain.TokenPrice, error)
}

// Config tunes the engine. Zero durations fall back to the defaults.
type Config struct {
	RouterTimeout      time.Duration
	RouterTimeouts     map[domain.RouterID]time.Duration
	PriceTimeout       time.Duration
	QuoteValidity      time.Duration
	PlatformFeePercent float64
	TieThreshold       float64
}

// Engine quotes every eligible router for a request and returns the best
// enriched route with the rest as alternates.
type Engine struct {
	routers     Routers
	transformer ParamTransformer
	prices      PriceOracle
	cfg         Config
	now         func() time.Time
}

// New creates an engine.
func New(routers Routers, transformer ParamTransformer, prices PriceOracle, cfg Config) *Engine {
	if routers == nil || transformer == nil || prices == nil {
		panic("engine.New: all dependencies must be non-nil")
	}
	if cfg.RouterTimeout <= 0 {
		cfg.RouterTimeout = DefaultRouterTimeout
	}
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = DefaultPriceTimeout
	}
	if cfg.QuoteValidity <= 0 {
		cfg.QuoteValidity = DefaultQuoteValidity
	}
	if cfg.PlatformFeePercent < 0 {
		cfg.PlatformFeePercent = DefaultPlatformFeePercent
	}
	return &Engine{
		routers:     routers,
		transformer: transformer,
		prices:      prices,
		cfg:         cfg,
		now:         time.Now,
	}
}

// GetRoute returns the best route for the request. The request runs to
// completion even if ctx is cancelled; only its values are kept.
func (e *Engine) GetRoute(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error) {
	if err := Validate(req); err != nil {
		return domain.RouteResponse{}, err
	}
	ctx = context.WithoutCancel(ctx)
	requestID := uuid.NewString()

	var (
		resp     domain.RouteResponse
		profiles map[domain.RouterID]router.Profile
		err      error
	)
	if req.IsReverse() {
		resp, profiles, err = e.reverse(ctx, req, requestID)
	} else {
		resp, profiles, err = e.forward(ctx, req, requestID)
	}
	if err != nil {
		return domain.RouteResponse{}, err
	}

	// Enrich in the caller's direction: fees and gas follow the paid leg.
	e.enrichAll(ctx, &resp.Route, resp.Alternates, profiles)

	now := e.now()
	resp.Timestamp = now
	resp.ExpiresAt = now.Add(e.cfg.QuoteValidity)

	slog.Info("route resolved",
		"request_id", requestID,
		"router", resp.Route.Router,
		"from_amount", resp.Route.FromToken.Amount,
		"to_amount", resp.Route.ToToken.Amount,
		"reversed", resp.Route.Reversed,
		"alternates", len(resp.Alternates),
		"failed", len(resp.Errors),
	)
	return resp, nil
}

// forward quotes and ranks every eligible router. The returned routes are not
// enriched yet; profiles holds each eligible router's profile for enrichment.
func (e *Engine) forward(ctx context.Context, req domain.RouteRequest, requestID string) (domain.RouteResponse, map[domain.RouterID]router.Profile, error) {
	eligible := e.routers.Eligible(req.FromToken.ChainID, req.ToToken.ChainID)
	if len(eligible) == 0 {
		return domain.RouteResponse{}, nil, unsupportedPairError(req.FromToken.ChainID, req.ToToken.ChainID)
	}
	attempted := lo.Map(eligible, func(c router.Capability, _ int) domain.RouterID { return c.ID() })
	profiles := lo.SliceToMap(eligible, func(c router.Capability) (domain.RouterID, router.Profile) {
		return c.ID(), c.Profile()
	})

	routes, failures := e.dispatch(ctx, req, eligible)
	if len(routes) == 0 {
		agg := newAggregateError(attempted, failures)
		slog.Warn("no routes", "request_id", requestID, "code", agg.Code, "routers", attempted)
		return domain.RouteResponse{}, nil, agg
	}

	best, alternates, _ := scoring.Select(routes, scoring.Options{TieThreshold: e.cfg.TieThreshold})
	alternates = lo.Filter(alternates, func(r domain.RouterRoute, _ int) bool { return r.ID != best.ID })

	return domain.RouteResponse{
		RequestID:  requestID,
		Route:      best,
		Alternates: alternates,
		Attempted:  attempted,
		Errors:     failures,
	}, profiles, nil
}

type outcome struct {
	route domain.RouterRoute
	err   *domain.RouterError
}

// dispatch queries every router concurrently. Results keep router order.
func (e *Engine) dispatch(ctx context.Context, req domain.RouteRequest, routers []router.Capability) ([]domain.RouterRoute, []domain.RouterError) {
	results := make([]outcome, len(routers))

	var g errgroup.Group
	for i, c := range routers {
		g.Go(func() error {
			results[i] = e.call(ctx, req, c)
			return nil
		})
	}
	_ = g.Wait()

	var routes []domain.RouterRoute
	var failures []domain.RouterError
	for i, res := range results {
		if res.err != nil {
			slog.Warn("router failed", "router", routers[i].ID(), "code", res.err.Code, "error", res.err)
			failures = append(failures, *res.err)
			continue
		}
		routes = append(routes, res.route)
	}
	return routes, failures
}

// call runs one router under its own timeout. A router that ignores its
// context is abandoned when the timeout fires.
func (e *Engine) call(ctx context.Context, req domain.RouteRequest, c router.Capability) outcome {
	id := c.ID()
	timeout := e.timeoutFor(id)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("router panicked", "router", id, "panic", r)
				done <- outcome{err: domain.NewRouterError(id, domain.CodeUnknown, fmt.Sprintf("router panicked: %v", r), nil)}
			}
		}()

		params, err := e.transformer.Transform(ctx, req, c)
		if err != nil {
			done <- outcome{err: router.Classify(id, err)}
			return
		}
		route, err := c.Quote(ctx, params)
		if err != nil {
			done <- outcome{err: router.Classify(id, err)}
			return
		}
		if route.Router == "" {
			route.Router = id
		}
		done <- outcome{route: route}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = domain.NewRouterError(id, domain.CodeTimeout, fmt.Sprintf("no response within %s", timeout), res.err)
		}
		return res
	case <-ctx.Done():
		return outcome{err: domain.NewRouterError(id, domain.CodeTimeout, fmt.Sprintf("no response within %s", timeout), ctx.Err())}
	}
}

func (e *Engine) timeoutFor(id domain.RouterID) time.Duration {
	if d, ok := e.cfg.RouterTimeouts[id]; ok && d > 0 {
		return d
	}
	return e.cfg.RouterTimeout
}
