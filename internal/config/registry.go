package config

import (
	"fmt"
	"strings"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// TokenSpec describes one token on one chain. Contract is the ERC-20
// contract address on EVM chains and the SPL mint on Solana; empty for
// native tokens.
type TokenSpec struct {
	Symbol   string
	Decimals uint8
	Contract string
}

// ChainSpec is the static description of a settlement chain: its native
// token and the supported token list. The core consumes only decimals and
// the tag mapping; RPC endpoints live in deployment config, never here.
type ChainSpec struct {
	Name   string
	Native TokenSpec
	Tokens map[swap.Asset]TokenSpec
}

// Registry maps each settlement chain to its spec.
type Registry map[swap.Chain]ChainSpec

// DefaultRegistry returns the two-chain testnet registry.
func DefaultRegistry() Registry {
	return Registry{
		swap.ChainSepolia: {
			Name:   "sepolia",
			Native: TokenSpec{Symbol: "ETH", Decimals: 18},
			Tokens: map[swap.Asset]TokenSpec{
				swap.AssetUSDC: {
					Symbol:   "USDC",
					Decimals: 6,
					Contract: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
				},
				swap.AssetEURC: {
					Symbol:   "EURC",
					Decimals: 6,
					Contract: "0x08210F9170F89Ab7658F0B5E3fF39b0E03C594D4",
				},
			},
		},
		swap.ChainSolanaDevnet: {
			Name:   "solana-devnet",
			Native: TokenSpec{Symbol: "SOL", Decimals: 9},
			Tokens: map[swap.Asset]TokenSpec{
				swap.AssetUSDC: {
					Symbol:   "USDC",
					Decimals: 6,
					Contract: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
				},
				swap.AssetEURC: {
					Symbol:   "EURC",
					Decimals: 6,
					Contract: "HzwqbKZw8HxMN6bF2yFZNrht3c2iXXzpKcFu7uBEDKtr",
				},
			},
		},
	}
}

// Token resolves the spec for a chain-tagged asset.
func (r Registry) Token(ref swap.AssetRef) (TokenSpec, error) {
	spec, ok := r[ref.Chain]
	if !ok {
		return TokenSpec{}, fmt.Errorf("%s: %w", ref.Chain, swap.ErrUnsupportedChain)
	}
	if ref.Asset == swap.NativeAsset(ref.Chain) {
		return spec.Native, nil
	}
	tok, ok := spec.Tokens[ref.Asset]
	if !ok {
		return TokenSpec{}, fmt.Errorf("%s: %w", ref, swap.ErrUnsupportedAsset)
	}
	return tok, nil
}

// Decimals returns the base-unit decimals for a chain-tagged asset.
func (r Registry) Decimals(ref swap.AssetRef) (uint8, error) {
	tok, err := r.Token(ref)
	if err != nil {
		return 0, err
	}
	return tok.Decimals, nil
}

// FormatBaseUnits renders a base-unit amount as a decimal string, with
// trailing zeros trimmed from the fractional part.
func FormatBaseUnits(amount uint64, decimals uint8) string {
	divisor := pow10(decimals)
	whole := amount / divisor
	frac := amount % divisor

	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	fracStr := fmt.Sprintf("%0*d", decimals, frac)
	return fmt.Sprintf("%d.%s", whole, strings.TrimRight(fracStr, "0"))
}

// ParseAmount converts a decimal string ("0.5", "100") to base units.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	var out uint64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
			out = out*10 + uint64(c-'0')
		}
	}
	return out, nil
}

func pow10(n uint8) uint64 {
	out := uint64(1)
	for i := uint8(0); i < n; i++ {
		out *= 10
	}
	return out
}
