package swap

// Chain identifies a settlement chain. Chain tags are part of the canonical
// intent encoding and must never be renumbered.
type Chain uint8

const (
	ChainSepolia      Chain = iota + 1
	ChainSolanaDevnet
)

func (c Chain) String() string {
	switch c {
	case ChainSepolia:
		return "sepolia"
	case ChainSolanaDevnet:
		return "solana-devnet"
	default:
		return "unknown"
	}
}

// Valid reports whether c is a known chain tag.
func (c Chain) Valid() bool {
	return c == ChainSepolia || c == ChainSolanaDevnet
}

// ParseChain maps a chain name to its tag.
func ParseChain(s string) (Chain, error) {
	switch s {
	case "sepolia":
		return ChainSepolia, nil
	case "solana-devnet":
		return ChainSolanaDevnet, nil
	default:
		return 0, ErrUnsupportedChain
	}
}

// Asset identifies a fungible token. Asset tags are part of the canonical
// intent encoding and must never be renumbered.
type Asset uint8

const (
	AssetUSDC Asset = iota + 1
	AssetEURC
	AssetETH
	AssetSOL
)

func (a Asset) String() string {
	switch a {
	case AssetUSDC:
		return "USDC"
	case AssetEURC:
		return "EURC"
	case AssetETH:
		return "ETH"
	case AssetSOL:
		return "SOL"
	default:
		return "unknown"
	}
}

// ParseAsset maps a token symbol to its tag.
func ParseAsset(s string) (Asset, error) {
	switch s {
	case "USDC":
		return AssetUSDC, nil
	case "EURC":
		return AssetEURC, nil
	case "ETH":
		return AssetETH, nil
	case "SOL":
		return AssetSOL, nil
	default:
		return 0, ErrUnsupportedAsset
	}
}

// AssetRef is an asset pinned to the chain it lives on.
type AssetRef struct {
	Chain Chain
	Asset Asset
}

func (r AssetRef) String() string {
	return r.Chain.String() + "/" + r.Asset.String()
}

// Valid reports whether the asset actually exists on the referenced chain:
// each chain carries its own native token plus the two stablecoins.
func (r AssetRef) Valid() bool {
	if !r.Chain.Valid() {
		return false
	}
	switch r.Asset {
	case AssetUSDC, AssetEURC:
		return true
	case AssetETH:
		return r.Chain == ChainSepolia
	case AssetSOL:
		return r.Chain == ChainSolanaDevnet
	default:
		return false
	}
}

// NativeAsset returns the chain's native token.
func NativeAsset(c Chain) Asset {
	switch c {
	case ChainSepolia:
		return AssetETH
	case ChainSolanaDevnet:
		return AssetSOL
	default:
		return 0
	}
}

// Algo identifies the signature scheme carried by an intent.
type Algo uint8

const (
	AlgoEd25519 Algo = iota + 1
)

func (a Algo) String() string {
	switch a {
	case AlgoEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// Intent is the signed instruction to move value from Source to Dest.
// All amounts are base units (smallest denomination of the source asset).
// The (Account, Sequence) pair is unique and strictly increasing per
// account; the matching engine rejects anything but the exact next value.
type Intent struct {
	Account     string
	Source      AssetRef
	Dest        AssetRef
	DestAddress string
	Amount      uint64
	MinOut      uint64
	Sequence    uint64

	// Filled by SignIntent.
	PubKey    []byte // DER SubjectPublicKeyInfo
	Signature []byte // 64 bytes
	Algo      Algo
}
