package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/router"
)

// enrichAll enriches the winner and the alternates concurrently.
func (e *Engine) enrichAll(ctx context.Context, best *domain.RouterRoute, alternates []domain.RouterRoute, profiles map[domain.RouterID]router.Profile) {
	var g errgroup.Group
	g.Go(func() error {
		e.enrich(ctx, best, profiles[best.Router])
		return nil
	})
	for i := range alternates {
		g.Go(func() error {
			e.enrich(ctx, &alternates[i], profiles[alternates[i].Router])
			return nil
		})
	}
	_ = g.Wait()
}

// enrich fills USD values and the fee breakdown. Price failures degrade the
// affected values to "0.00"; the route is never dropped.
func (e *Engine) enrich(ctx context.Context, r *domain.RouterRoute, profile router.Profile) {
	if r.FromToken.AmountUSD == nil || r.ToToken.AmountUSD == nil {
		var fromUSD, toUSD string
		var g errgroup.Group
		g.Go(func() error {
			fromUSD = e.legUSD(ctx, r.FromToken)
			return nil
		})
		g.Go(func() error {
			toUSD = e.legUSD(ctx, r.ToToken)
			return nil
		})
		_ = g.Wait()
		r.FromToken.AmountUSD = &fromUSD
		r.ToToken.AmountUSD = &toUSD
	}

	gasUSD := domain.SafeParse(r.Fees.GasUSD)
	if profile.NativeGas && r.Fees.GasNative != "" {
		gasUSD = gasUSD.Add(e.nativeGasUSD(ctx, r.FromToken.Token.ChainID, r.Fees.GasNative))
	}
	protocolUSD := domain.SafeParse(r.Fees.ProtocolUSD)
	platformUSD := domain.SafeParse(*r.FromToken.AmountUSD).
		Mul(decimal.NewFromFloat(e.cfg.PlatformFeePercent)).
		Div(decimal.NewFromInt(100))

	r.Fees.GasUSD = domain.FormatUSD(gasUSD)
	r.Fees.ProtocolUSD = domain.FormatUSD(protocolUSD)
	r.Fees.PlatformUSD = domain.FormatUSD(platformUSD)
	r.Fees.TotalUSD = domain.FormatUSD(gasUSD.Add(protocolUSD).Add(platformUSD))
}

// legUSD values a leg at the oracle price.
func (e *Engine) legUSD(ctx context.Context, leg domain.RouteLeg) string {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout)
	defer cancel()

	price, err := e.prices.PriceOf(ctx, leg.Token.Address, leg.Token.ChainID, leg.Token.Symbol)
	if err != nil {
		slog.Warn("leg price unavailable", "token", leg.Token.String(), "error", err)
		return domain.ZeroUSD
	}
	amount := domain.FromBaseUnits(leg.Amount, legDecimals(leg.Token))
	return domain.FormatUSD(amount.Mul(domain.SafeParse(price.PriceUSD)))
}

// nativeGasUSD converts a gas amount in the chain's native base units to USD.
func (e *Engine) nativeGasUSD(ctx context.Context, chainID domain.ChainID, gasNative string) decimal.Decimal {
	info, ok := domain.LookupChain(chainID)
	if !ok {
		return decimal.Zero
	}
	native := domain.NativeEVMZero
	if chainID.IsSolana() {
		native = domain.NativeSolana
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout)
	defer cancel()

	price, err := e.prices.PriceOf(ctx, native, chainID, info.NativeSymbol)
	if err != nil {
		slog.Warn("native gas price unavailable", "chain", chainID, "error", err)
		return decimal.Zero
	}
	return domain.FromBaseUnits(gasNative, info.NativeDecimals).Mul(domain.SafeParse(price.PriceUSD))
}

func legDecimals(t domain.Token) int {
	if t.Decimals != nil {
		return *t.Decimals
	}
	if t.IsNative() {
		if info, ok := domain.LookupChain(t.ChainID); ok {
			return info.NativeDecimals
		}
	}
	return 18
}
