package tokens

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/mtlprog/swaproute/internal/domain"
)

const usdcEth = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

type mockReader struct {
	decimals int
	err      error
	calls    int
}

func (m *mockReader) Decimals(_ context.Context, _ string) (int, error) {
	m.calls++
	return m.decimals, m.err
}

type mockRepo struct {
	mu    sync.Mutex
	items map[string]Metadata
	err   error
	saved []Metadata
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[string]Metadata)}
}

func (m *mockRepo) Get(_ context.Context, chainID domain.ChainID, address string) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Metadata{}, m.err
	}
	item, ok := m.items[domain.TokenKey(chainID, address)]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return item, nil
}

func (m *mockRepo) Save(_ context.Context, md Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, md)
	m.items[domain.TokenKey(md.ChainID, md.Address)] = md
	return nil
}

func (m *mockRepo) List(_ context.Context, chainID domain.ChainID) ([]Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Metadata
	for _, item := range m.items {
		if item.ChainID == chainID {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestDecimalsOfNative(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		chain   domain.ChainID
		address string
		want    int
	}{
		{domain.ChainEthereum, domain.NativeEVMZero, 18},
		{domain.ChainBSC, domain.NativeEVMEeee, 18},
		{domain.ChainSolana, domain.NativeSolana, 9},
	}
	for _, tt := range tests {
		if got := r.DecimalsOf(context.Background(), tt.chain, tt.address); got != tt.want {
			t.Errorf("DecimalsOf(%d, %s) = %d, want %d", tt.chain, tt.address, got, tt.want)
		}
	}
}

func TestDecimalsOfReadsChainAndPersists(t *testing.T) {
	reader := &mockReader{decimals: 6}
	repo := newMockRepo()
	r := NewResolver(repo, map[domain.ChainID]ChainReader{domain.ChainEthereum: reader})

	for range 3 {
		if got := r.DecimalsOf(context.Background(), domain.ChainEthereum, usdcEth); got != 6 {
			t.Fatalf("DecimalsOf = %d, want 6", got)
		}
	}
	if reader.calls != 1 {
		t.Errorf("reader calls = %d, want 1", reader.calls)
	}
	if len(repo.saved) != 1 || repo.saved[0].Decimals != 6 {
		t.Errorf("saved = %+v, want one entry with 6 decimals", repo.saved)
	}
}

func TestDecimalsOfUsesRepository(t *testing.T) {
	reader := &mockReader{decimals: 18}
	repo := newMockRepo()
	repo.items[domain.TokenKey(domain.ChainEthereum, usdcEth)] = Metadata{ChainID: domain.ChainEthereum, Address: usdcEth, Decimals: 6}
	r := NewResolver(repo, map[domain.ChainID]ChainReader{domain.ChainEthereum: reader})

	if got := r.DecimalsOf(context.Background(), domain.ChainEthereum, usdcEth); got != 6 {
		t.Errorf("DecimalsOf = %d, want 6", got)
	}
	if reader.calls != 0 {
		t.Errorf("reader calls = %d, want 0", reader.calls)
	}
}

func TestDecimalsOfDefaultsWhenUnreachable(t *testing.T) {
	tests := []struct {
		name    string
		readers map[domain.ChainID]ChainReader
		repo    Repository
	}{
		{"no reader", nil, nil},
		{"reader error", map[domain.ChainID]ChainReader{domain.ChainEthereum: &mockReader{err: errors.New("rpc down")}}, nil},
		{"repo error and no reader", nil, &mockRepo{items: map[string]Metadata{}, err: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.repo, tt.readers)
			if got := r.DecimalsOf(context.Background(), domain.ChainEthereum, usdcEth); got != DefaultDecimals {
				t.Errorf("DecimalsOf = %d, want %d", got, DefaultDecimals)
			}
		})
	}
}

func TestPreload(t *testing.T) {
	repo := newMockRepo()
	repo.items["a"] = Metadata{ChainID: domain.ChainEthereum, Address: usdcEth, Decimals: 6}
	reader := &mockReader{decimals: 18}
	r := NewResolver(repo, map[domain.ChainID]ChainReader{domain.ChainEthereum: reader})

	n, err := r.Preload(context.Background(), []domain.ChainID{domain.ChainEthereum})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("preloaded %d, want 1", n)
	}
	repo.err = errors.New("db down")
	if got := r.DecimalsOf(context.Background(), domain.ChainEthereum, usdcEth); got != 6 {
		t.Errorf("DecimalsOf = %d, want 6 from preloaded cache", got)
	}
}

type mockCaller struct {
	out []byte
	err error
	msg ethereum.CallMsg
}

func (m *mockCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.msg = msg
	return m.out, m.err
}

func TestEVMReaderDecimals(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 6
	caller := &mockCaller{out: word}

	got, err := NewEVMReader(caller).Decimals(context.Background(), usdcEth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Errorf("decimals = %d, want 6", got)
	}
	if string(caller.msg.Data) != string(decimalsSelector) {
		t.Errorf("call data = %x, want decimals() selector", caller.msg.Data)
	}
}

func TestEVMReaderRejectsShortOutput(t *testing.T) {
	caller := &mockCaller{out: []byte{0x06}}
	if _, err := NewEVMReader(caller).Decimals(context.Background(), usdcEth); err == nil {
		t.Error("expected error for short return data")
	}
}

type mockSupply struct {
	decimals uint8
	err      error
}

func (m *mockSupply) GetTokenSupply(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetTokenSupplyResult{Value: &rpc.UiTokenAmount{Decimals: m.decimals}}, nil
}

func TestSolanaReaderDecimals(t *testing.T) {
	got, err := NewSolanaReader(&mockSupply{decimals: 6}).Decimals(context.Background(), "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Errorf("decimals = %d, want 6", got)
	}
}

func TestSolanaReaderInvalidMint(t *testing.T) {
	if _, err := NewSolanaReader(&mockSupply{}).Decimals(context.Background(), "not-a-mint"); err == nil {
		t.Error("expected error for invalid mint")
	}
}
