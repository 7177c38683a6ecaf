package router

import (
	"context"
	"fmt"

	"github.com/mtlprog/swaproute/internal/domain"
)

// DecimalsResolver resolves token decimals on demand.
type DecimalsResolver interface {
	DecimalsOf(ctx context.Context, chainID domain.ChainID, address string) int
}

// Transformer projects canonical requests onto router-native parameters.
type Transformer struct {
	decimals DecimalsResolver
}

// NewTransformer creates a transformer backed by the given decimals resolver.
func NewTransformer(decimals DecimalsResolver) *Transformer {
	if decimals == nil {
		panic("router.NewTransformer: decimals resolver must not be nil")
	}
	return &Transformer{decimals: decimals}
}

// Transform builds the RouterParams for one router. The request must be
// input-driven; the engine inverts output-driven requests beforehand.
func (t *Transformer) Transform(ctx context.Context, req domain.RouteRequest, c Capability) (domain.RouterParams, error) {
	id := c.ID()
	profile := c.Profile()

	fromChain, ok := profile.ChainKey(req.FromToken.ChainID)
	if !ok {
		return domain.RouterParams{}, domain.NewRouterError(id, domain.CodeUnsupportedPair,
			fmt.Sprintf("chain %d not supported", req.FromToken.ChainID), nil)
	}
	toChain, ok := profile.ChainKey(req.ToToken.ChainID)
	if !ok {
		return domain.RouterParams{}, domain.NewRouterError(id, domain.CodeUnsupportedPair,
			fmt.Sprintf("chain %d not supported", req.ToToken.ChainID), nil)
	}
	if req.FromAmount == "" {
		return domain.RouterParams{}, fmt.Errorf("%s: transform requires an input amount", id)
	}

	fromToken := t.withDecimals(ctx, req.FromToken)
	toToken := t.withDecimals(ctx, req.ToToken)

	amount := domain.ToBaseUnits(domain.SafeParse(req.FromAmount), *fromToken.Decimals)
	if domain.SafeParse(amount).IsZero() {
		return domain.RouterParams{}, domain.NewRouterError(id, domain.CodeUnknown,
			fmt.Sprintf("amount %s is below one base unit of %s", req.FromAmount, fromToken), nil)
	}

	return domain.RouterParams{
		Router:          id,
		FromChain:       fromChain,
		ToChain:         toChain,
		FromAddress:     profile.Address(req.FromToken.ChainID, req.FromToken.Address),
		ToAddress:       profile.Address(req.ToToken.ChainID, req.ToToken.Address),
		Amount:          amount,
		FromDecimals:    *fromToken.Decimals,
		ToDecimals:      *toToken.Decimals,
		SlippageValue:   profile.Slippage.Convert(req.Slippage),
		SlippagePercent: req.Slippage,
		Order:           req.Order,
		Sender:          req.Sender,
		Recipient:       req.Recipient,
		FromToken:       fromToken,
		ToToken:         toToken,
	}, nil
}

func (t *Transformer) withDecimals(ctx context.Context, tok domain.Token) domain.Token {
	if tok.Decimals != nil {
		return tok
	}
	return tok.WithDecimals(t.decimals.DecimalsOf(ctx, tok.ChainID, tok.Address))
}
