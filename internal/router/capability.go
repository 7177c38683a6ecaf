// Package router defines the routing-backend capability contract, the router
// registry and the per-router parameter transformation.
package router

import (
	"context"
	"errors"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Kind is the capability class of a router.
type Kind string

const (
	// KindCrossChain routers bridge between two different chains.
	KindCrossChain Kind = "cross-chain"
	// KindSameChain routers swap within one EVM chain.
	KindSameChain Kind = "same-chain"
	// KindChainNative routers swap within a single non-EVM chain.
	KindChainNative Kind = "chain-native"
)

// SlippageUnit is the unit a router expects slippage in.
type SlippageUnit int

const (
	UnitPercent SlippageUnit = iota
	UnitFraction
	UnitBasisPoints
)

// Convert turns a percentage (0.5 = 0.5%) into the unit.
func (u SlippageUnit) Convert(percent float64) float64 {
	switch u {
	case UnitFraction:
		return percent / 100
	case UnitBasisPoints:
		return percent * 100
	default:
		return percent
	}
}

// FormatBasisPoints renders a basis-point value as the nearest whole number.
// Percent-to-bps conversion is inexact in binary (0.29 * 100 = 28.999...).
func FormatBasisPoints(bps float64) string {
	return strconv.Itoa(int(math.Round(bps)))
}

func (u SlippageUnit) String() string {
	switch u {
	case UnitFraction:
		return "fraction"
	case UnitBasisPoints:
		return "bps"
	default:
		return "percent"
	}
}

// Profile declares how a router represents chains, tokens and slippage.
type Profile struct {
	// Chains maps canonical chain ids to the router's own identifiers.
	Chains map[domain.ChainID]string
	// NativeAddress is the address the router expects for a chain's native
	// asset. Chains without an entry keep the request's sentinel.
	NativeAddress map[domain.ChainID]string
	Slippage      SlippageUnit
	// SuppliesUSD is set when quotes carry USD values for both legs.
	SuppliesUSD bool
	// NativeGas is set when gas is reported in the chain's native asset
	// instead of USD.
	NativeGas bool
}

// ChainKey returns the router's identifier for a canonical chain.
func (p Profile) ChainKey(id domain.ChainID) (string, bool) {
	key, ok := p.Chains[id]
	return key, ok
}

// Address rewrites native sentinels to the router's expected form.
func (p Profile) Address(chainID domain.ChainID, address string) string {
	if !domain.IsNativeAddress(address) {
		return address
	}
	if native, ok := p.NativeAddress[chainID]; ok {
		return native
	}
	return address
}

// Capability is a routing backend.
type Capability interface {
	ID() domain.RouterID
	Kind() Kind
	Profile() Profile
	SupportsChains(from, to domain.ChainID) bool
	Quote(ctx context.Context, params domain.RouterParams) (domain.RouterRoute, error)
}

// SupportsByKind is the default chain-support rule: both chains must be mapped,
// cross-chain routers only serve different chains and the others only one.
func SupportsByKind(kind Kind, p Profile, from, to domain.ChainID) bool {
	if _, ok := p.Chains[from]; !ok {
		return false
	}
	if _, ok := p.Chains[to]; !ok {
		return false
	}
	if kind == KindCrossChain {
		return from != to
	}
	return from == to
}

// Classify turns an arbitrary router failure into a RouterError. Errors that
// already are RouterErrors pass through.
func Classify(id domain.RouterID, err error) *domain.RouterError {
	if err == nil {
		return nil
	}
	var re *domain.RouterError
	if errors.As(err, &re) {
		if re.Router == "" {
			cp := *re
			cp.Router = id
			return &cp
		}
		return re
	}
	if isTimeout(err) {
		return domain.NewRouterError(id, domain.CodeTimeout, "router timed out", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no route"), strings.Contains(msg, "route not found"), strings.Contains(msg, "could not find any route"),
		strings.Contains(msg, "no available quotes"):
		return domain.NewRouterError(id, domain.CodeNoRoute, "no route found", err)
	case strings.Contains(msg, "liquidity"):
		return domain.NewRouterError(id, domain.CodeInsufficientLiquidity, "insufficient liquidity", err)
	default:
		return domain.NewRouterError(id, domain.CodeUnknown, err.Error(), err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
