package domain

import (
	"strconv"
	"strings"
)

// ChainID is the canonical numeric chain identifier used across the engine.
// EVM chains use their EIP-155 id; Solana uses the id LI.FI assigns to it.
type ChainID int64

const (
	ChainEthereum  ChainID = 1
	ChainOptimism  ChainID = 10
	ChainBSC       ChainID = 56
	ChainPolygon   ChainID = 137
	ChainBase      ChainID = 8453
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
	ChainSolana    ChainID = 1151111081099710
)

func (c ChainID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// IsSolana reports whether the chain is Solana mainnet.
func (c ChainID) IsSolana() bool {
	return c == ChainSolana
}

// IsEVM reports whether the chain is a known EVM chain.
func (c ChainID) IsEVM() bool {
	_, ok := chainRegistry[c]
	return ok && !c.IsSolana()
}

// ChainInfo holds static metadata for a supported chain.
type ChainInfo struct {
	ID             ChainID
	Name           string
	NativeSymbol   string
	NativeDecimals int
	// WrappedNative is the address routers use in place of the native sentinel.
	WrappedNative string
}

var chainRegistry = map[ChainID]ChainInfo{
	ChainEthereum:  {ID: ChainEthereum, Name: "Ethereum", NativeSymbol: "ETH", NativeDecimals: 18, WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	ChainOptimism:  {ID: ChainOptimism, Name: "Optimism", NativeSymbol: "ETH", NativeDecimals: 18, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainBSC:       {ID: ChainBSC, Name: "BNB Chain", NativeSymbol: "BNB", NativeDecimals: 18, WrappedNative: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"},
	ChainPolygon:   {ID: ChainPolygon, Name: "Polygon", NativeSymbol: "POL", NativeDecimals: 18, WrappedNative: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"},
	ChainBase:      {ID: ChainBase, Name: "Base", NativeSymbol: "ETH", NativeDecimals: 18, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainArbitrum:  {ID: ChainArbitrum, Name: "Arbitrum", NativeSymbol: "ETH", NativeDecimals: 18, WrappedNative: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"},
	ChainAvalanche: {ID: ChainAvalanche, Name: "Avalanche", NativeSymbol: "AVAX", NativeDecimals: 18, WrappedNative: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"},
	ChainSolana:    {ID: ChainSolana, Name: "Solana", NativeSymbol: "SOL", NativeDecimals: 9, WrappedNative: WrappedSOLMint},
}

// LookupChain returns static metadata for a chain.
func LookupChain(id ChainID) (ChainInfo, bool) {
	info, ok := chainRegistry[id]
	return info, ok
}

// ParseChainID parses a canonical chain id from its decimal string form.
// The aliases "solana" and "sol" map to ChainSolana.
func ParseChainID(s string) (ChainID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solana", "sol":
		return ChainSolana, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return ChainID(n), nil
}
