package config

import (
	"os"
	"testing"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env=development, got %s", cfg.Env)
	}

	if cfg.Engine.Addr != "localhost:8540" {
		t.Errorf("unexpected engine addr: %s", cfg.Engine.Addr)
	}

	if cfg.Engine.SettleIntervalMS != 250 {
		t.Errorf("expected settle interval 250, got %d", cfg.Engine.SettleIntervalMS)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("CROSSLANE_ENV", "production")
	os.Setenv("CROSSLANE_CUSTODY_KMS_KEY_ID", "arn:aws:kms:us-east-1:123456:key/test-key")
	defer os.Unsetenv("CROSSLANE_ENV")
	defer os.Unsetenv("CROSSLANE_CUSTODY_KMS_KEY_ID")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env=production, got %s", cfg.Env)
	}

	if cfg.Custody.KMSKeyID != "arn:aws:kms:us-east-1:123456:key/test-key" {
		t.Errorf("unexpected kms key id: %s", cfg.Custody.KMSKeyID)
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	sepolia, ok := reg[swap.ChainSepolia]
	if !ok {
		t.Fatal("sepolia missing from registry")
	}
	if sepolia.Native.Symbol != "ETH" || sepolia.Native.Decimals != 18 {
		t.Errorf("unexpected sepolia native token: %+v", sepolia.Native)
	}
	if usdc := sepolia.Tokens[swap.AssetUSDC]; usdc.Decimals != 6 ||
		usdc.Contract != "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238" {
		t.Errorf("unexpected sepolia USDC spec: %+v", usdc)
	}
	if _, ok := sepolia.Tokens[swap.AssetEURC]; !ok {
		t.Error("sepolia EURC missing")
	}

	sol, ok := reg[swap.ChainSolanaDevnet]
	if !ok {
		t.Fatal("solana-devnet missing from registry")
	}
	if sol.Native.Symbol != "SOL" || sol.Native.Decimals != 9 {
		t.Errorf("unexpected solana native token: %+v", sol.Native)
	}
	if usdc := sol.Tokens[swap.AssetUSDC]; usdc.Contract != "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU" {
		t.Errorf("unexpected solana USDC mint: %s", usdc.Contract)
	}
}

func TestRegistryDecimals(t *testing.T) {
	reg := DefaultRegistry()

	dec, err := reg.Decimals(swap.AssetRef{Chain: swap.ChainSepolia, Asset: swap.AssetETH})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec != 18 {
		t.Errorf("expected 18 decimals for ETH, got %d", dec)
	}

	dec, err = reg.Decimals(swap.AssetRef{Chain: swap.ChainSolanaDevnet, Asset: swap.AssetUSDC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec != 6 {
		t.Errorf("expected 6 decimals for USDC, got %d", dec)
	}

	if _, err := reg.Decimals(swap.AssetRef{Chain: swap.Chain(99), Asset: swap.AssetUSDC}); err == nil {
		t.Error("expected error for unknown chain")
	}
}

func TestFormatBaseUnits(t *testing.T) {
	cases := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{100_000000, 6, "100"},
		{100_500000, 6, "100.5"},
		{1, 6, "0.000001"},
		{0, 6, "0"},
		{1_500000000, 9, "1.5"},
	}
	for _, tc := range cases {
		if got := FormatBaseUnits(tc.amount, tc.decimals); got != tc.want {
			t.Errorf("FormatBaseUnits(%d, %d) = %q, want %q", tc.amount, tc.decimals, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"100", 6, 100_000000, false},
		{"100.5", 6, 100_500000, false},
		{"0.000001", 6, 1, false},
		{".5", 6, 500000, false},
		{"0.0000001", 6, 0, true},
		{"abc", 6, 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, tc.decimals)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
