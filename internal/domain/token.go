package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// Native-token sentinel addresses accepted in requests.
const (
	NativeEVMZero  = "0x0000000000000000000000000000000000000000"
	NativeEVMEeee  = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
	NativeSolana   = "11111111111111111111111111111111"
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// Token identifies a token on a chain. Decimals is nil when unknown.
type Token struct {
	ChainID  ChainID `json:"chainId"`
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol,omitempty"`
	Decimals *int    `json:"decimals,omitempty"`
}

// IsNative returns true if the address is one of the native-token sentinels.
func (t Token) IsNative() bool {
	return IsNativeAddress(t.Address)
}

// Key returns the cache key "{chainID}:{lowercase address}".
func (t Token) Key() string {
	return TokenKey(t.ChainID, t.Address)
}

func (t Token) String() string {
	if t.Symbol != "" {
		return fmt.Sprintf("%s@%d", t.Symbol, t.ChainID)
	}
	return fmt.Sprintf("%s@%d", t.Address, t.ChainID)
}

// TokenKey formats the canonical (chain, address) key used by caches.
func TokenKey(chainID ChainID, address string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
}

// IsNativeAddress reports whether addr is a native-token sentinel.
func IsNativeAddress(addr string) bool {
	switch {
	case strings.EqualFold(addr, NativeEVMZero), strings.EqualFold(addr, NativeEVMEeee):
		return true
	case addr == NativeSolana:
		return true
	default:
		return false
	}
}

// ValidAddress checks the address format for the token's chain family. Native
// sentinels are accepted only on their own family.
func ValidAddress(chainID ChainID, addr string) bool {
	if addr == "" {
		return false
	}
	if chainID.IsSolana() {
		_, err := solana.PublicKeyFromBase58(addr)
		return err == nil
	}
	return common.IsHexAddress(addr)
}

// NormalizeAddress returns the checksummed form of EVM addresses and leaves
// Solana addresses untouched.
func NormalizeAddress(chainID ChainID, addr string) string {
	if chainID.IsSolana() || !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// WithDecimals returns a copy of t with decimals set.
func (t Token) WithDecimals(d int) Token {
	t.Decimals = &d
	return t
}
