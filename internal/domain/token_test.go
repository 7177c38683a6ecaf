package domain

import "testing"

func TestIsNativeAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0x0000000000000000000000000000000000000000", true},
		{"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", true},
		{NativeSolana, true},
		{WrappedSOLMint, false},
		{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", false},
	}
	for _, tt := range tests {
		if got := IsNativeAddress(tt.addr); got != tt.want {
			t.Errorf("IsNativeAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name  string
		chain ChainID
		addr  string
		want  bool
	}{
		{"evm token", ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", true},
		{"evm lowercase", ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", true},
		{"evm garbage", ChainEthereum, "0x1234", false},
		{"solana mint", ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"solana native", ChainSolana, NativeSolana, true},
		{"evm address on solana", ChainSolana, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", false},
		{"evm native zero", ChainEthereum, NativeEVMZero, true},
		{"evm native eeee", ChainArbitrum, NativeEVMEeee, true},
		{"solana native on evm", ChainEthereum, NativeSolana, false},
		{"evm native zero on solana", ChainSolana, NativeEVMZero, false},
		{"evm native eeee on solana", ChainSolana, NativeEVMEeee, false},
		{"empty", ChainEthereum, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAddress(tt.chain, tt.addr); got != tt.want {
				t.Errorf("ValidAddress(%d, %q) = %v, want %v", tt.chain, tt.addr, got, tt.want)
			}
		})
	}
}

func TestTokenKeyLowercases(t *testing.T) {
	a := Token{ChainID: ChainEthereum, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}
	b := Token{ChainID: ChainEthereum, Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "1:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Errorf("Key() = %q", a.Key())
	}
}

func TestNormalizeAddress(t *testing.T) {
	got := NormalizeAddress(ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if got != "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48" {
		t.Errorf("NormalizeAddress = %q", got)
	}
	sol := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	if got := NormalizeAddress(ChainSolana, sol); got != sol {
		t.Errorf("NormalizeAddress(solana) = %q", got)
	}
}

func TestParseChainID(t *testing.T) {
	tests := []struct {
		in      string
		want    ChainID
		wantErr bool
	}{
		{"1", ChainEthereum, false},
		{" 137 ", ChainPolygon, false},
		{"solana", ChainSolana, false},
		{"SOL", ChainSolana, false},
		{"eth", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChainID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChainID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChainID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
