package tokens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// decimalsSelector is the 4-byte selector of ERC-20 decimals().
var decimalsSelector = []byte{0x31, 0x3c, 0xe5, 0x67}

// ContractCaller is the subset of ethclient.Client used to read ERC-20 metadata.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMReader reads ERC-20 decimals over JSON-RPC.
type EVMReader struct {
	caller ContractCaller
}

// NewEVMReader creates a reader over an existing contract caller.
func NewEVMReader(caller ContractCaller) *EVMReader {
	return &EVMReader{caller: caller}
}

// DialEVM connects to an EVM JSON-RPC endpoint.
func DialEVM(ctx context.Context, rpcURL string) (*EVMReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	return NewEVMReader(client), nil
}

// Decimals calls decimals() on the token contract.
func (r *EVMReader) Decimals(ctx context.Context, address string) (int, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("invalid EVM address %q", address)
	}
	to := common.HexToAddress(address)

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: decimalsSelector}, nil)
	if err != nil {
		return 0, fmt.Errorf("calling decimals() on %s: %w", address, err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("decimals() on %s returned %d bytes", address, len(out))
	}

	n := new(big.Int).SetBytes(out[:32])
	if !n.IsInt64() || n.Int64() > 255 {
		return 0, fmt.Errorf("decimals() on %s out of range: %s", address, n)
	}
	return int(n.Int64()), nil
}
