package price

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Source is one price tier. Implementations return ErrNoPrice (possibly
// wrapped) when they have no answer for the token.
type Source interface {
	Name() string
	PriceUSD(ctx context.Context, chainID domain.ChainID, address string) (decimal.Decimal, error)
}
