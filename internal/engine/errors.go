package engine

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/swaproute/internal/domain"
)

// ValidationError reports a malformed request. It is returned before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AggregateError is returned when no router produced a route.
type AggregateError struct {
	Code    domain.ErrorCode
	Message string
	Routers []domain.RouterID
	Errors  []domain.RouterError
}

func (e *AggregateError) Error() string {
	return e.Message
}

// Unwrap exposes the individual router failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i := range e.Errors {
		errs[i] = &e.Errors[i]
	}
	return errs
}

func unsupportedPairError(from, to domain.ChainID) *AggregateError {
	return &AggregateError{
		Code:    domain.CodeUnsupportedPair,
		Message: fmt.Sprintf("no router supports chain %d to chain %d", from, to),
	}
}

// newAggregateError synthesizes one message from the failures of every router tried.
func newAggregateError(routers []domain.RouterID, errs []domain.RouterError) *AggregateError {
	tried := strings.Join(lo.Map(routers, func(id domain.RouterID, _ int) string { return string(id) }), ", ")

	mentions := func(code domain.ErrorCode, phrase string) bool {
		return lo.SomeBy(errs, func(e domain.RouterError) bool {
			if e.Code == code {
				return true
			}
			return strings.Contains(strings.ToLower(e.Error()), phrase) ||
				(e.Err != nil && strings.Contains(strings.ToLower(e.Err.Error()), phrase))
		})
	}
	all := func(code domain.ErrorCode) bool {
		return len(errs) > 0 && lo.EveryBy(errs, func(e domain.RouterError) bool { return e.Code == code })
	}

	agg := &AggregateError{Routers: routers, Errors: errs}
	switch {
	case mentions(domain.CodeNoRoute, "no route"):
		agg.Code = domain.CodeNoRoute
		agg.Message = fmt.Sprintf("no route available for this token pair (tried: %s)", tried)
	case mentions(domain.CodeInsufficientLiquidity, "liquidity"):
		agg.Code = domain.CodeInsufficientLiquidity
		agg.Message = fmt.Sprintf("insufficient liquidity for this swap amount (tried: %s)", tried)
	case all(domain.CodeTimeout):
		agg.Code = domain.CodeTimeout
		agg.Message = fmt.Sprintf("all routers timed out (tried: %s)", tried)
	case all(domain.CodeUnsupportedPair):
		agg.Code = domain.CodeUnsupportedPair
		agg.Message = fmt.Sprintf("token pair not supported (tried: %s)", tried)
	default:
		agg.Code = domain.CodeUnknown
		agg.Message = fmt.Sprintf("all routers failed to quote this swap (tried: %s)", tried)
	}
	return agg
}
