package swap

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"errors"
	"testing"
)

// testAccount returns a principal derived from a throwaway key.
func testAccount(t *testing.T, seed byte) string {
	t.Helper()
	keySeed := bytes.Repeat([]byte{seed}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(keySeed)
	der, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return EncodePrincipal(PrincipalFromKey(der))
}

func validIntent(t *testing.T) *Intent {
	t.Helper()
	return &Intent{
		Account:     testAccount(t, 1),
		Source:      AssetRef{Chain: ChainSepolia, Asset: AssetUSDC},
		Dest:        AssetRef{Chain: ChainSolanaDevnet, Asset: AssetUSDC},
		DestAddress: "8vJ1EEeJBSX8UZetuHY7d2SiGjdw2AhfamzfxokPsCF4",
		Amount:      100_000000,
		MinOut:      99_000000,
		Sequence:    0,
	}
}

func TestEncodeIntent_Layout(t *testing.T) {
	intent := validIntent(t)
	enc, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	principal, err := DecodePrincipal(intent.Account)
	if err != nil {
		t.Fatalf("decode principal: %v", err)
	}

	wantLen := len(principal) + 4 + 24 + len(intent.DestAddress)
	if len(enc) != wantLen {
		t.Fatalf("expected %d bytes, got %d", wantLen, len(enc))
	}

	tags := enc[len(principal) : len(principal)+4]
	want := []byte{byte(ChainSepolia), byte(AssetUSDC), byte(ChainSolanaDevnet), byte(AssetUSDC)}
	if !bytes.Equal(tags, want) {
		t.Fatalf("tag bytes %v, want %v", tags, want)
	}

	// Amount is the first 8-byte big-endian field after the tags.
	amount := enc[len(principal)+4 : len(principal)+12]
	wantAmount := []byte{0, 0, 0, 0, 0x05, 0xf5, 0xe1, 0x00}
	if !bytes.Equal(amount, wantAmount) {
		t.Fatalf("amount bytes %v, want %v", amount, wantAmount)
	}

	if !bytes.HasSuffix(enc, []byte(intent.DestAddress)) {
		t.Fatalf("encoding does not end with the destination address")
	}
}

func TestEncodeIntent_InjectiveInEveryField(t *testing.T) {
	base := validIntent(t)
	baseEnc, err := EncodeIntent(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutations := map[string]func(*Intent){
		"account":      func(i *Intent) { i.Account = testAccount(t, 2) },
		"source chain": func(i *Intent) { i.Source = AssetRef{Chain: ChainSolanaDevnet, Asset: AssetUSDC} },
		"source asset": func(i *Intent) { i.Source.Asset = AssetEURC },
		"dest chain":   func(i *Intent) { i.Dest = AssetRef{Chain: ChainSepolia, Asset: AssetUSDC} },
		"dest asset":   func(i *Intent) { i.Dest.Asset = AssetEURC },
		"dest address": func(i *Intent) { i.DestAddress = "So11111111111111111111111111111111111111112" },
		"amount":       func(i *Intent) { i.Amount++ },
		"min out":      func(i *Intent) { i.MinOut++ },
		"sequence":     func(i *Intent) { i.Sequence++ },
	}

	for name, mutate := range mutations {
		mutated := *base
		mutate(&mutated)
		enc, err := EncodeIntent(&mutated)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if bytes.Equal(enc, baseEnc) {
			t.Errorf("changing %s did not change the encoding", name)
		}
	}
}

func TestEncodeIntent_SignatureFieldsExcluded(t *testing.T) {
	intent := validIntent(t)
	enc1, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent.Signature = bytes.Repeat([]byte{0xff}, 64)
	intent.PubKey = []byte{1, 2, 3}
	intent.Algo = AlgoEd25519
	enc2, err := EncodeIntent(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(enc1, enc2) {
		t.Fatal("signature fields leaked into the canonical encoding")
	}
}

func TestEncodeIntent_RejectsBadPrincipal(t *testing.T) {
	intent := validIntent(t)
	intent.Account = "not-a-principal!"
	if _, err := EncodeIntent(intent); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestEncodeIntent_RejectsInvalidPairing(t *testing.T) {
	intent := validIntent(t)
	intent.Source = AssetRef{Chain: ChainSolanaDevnet, Asset: AssetETH}
	if _, err := EncodeIntent(intent); !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("expected ErrUnsupportedAsset, got %v", err)
	}
}

func TestIntentHash_Deterministic(t *testing.T) {
	intent := validIntent(t)
	h1, err := IntentHash(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := IntentHash(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Fatal("hash not deterministic")
	}

	intent.Sequence++
	h3, err := IntentHash(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h3 {
		t.Fatal("hash unchanged after sequence change")
	}
}

func TestPrincipalRoundTrip(t *testing.T) {
	account := testAccount(t, 7)
	raw, err := DecodePrincipal(account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 29 {
		t.Fatalf("expected 29 raw bytes, got %d", len(raw))
	}
	if EncodePrincipal(raw) != account {
		t.Fatal("principal does not round-trip")
	}
}

func TestDecodePrincipal_RejectsCorruptChecksum(t *testing.T) {
	account := testAccount(t, 7)
	// Flip one character; the check prefix must catch it.
	corrupted := []byte(account)
	if corrupted[0] == 'a' {
		corrupted[0] = 'b'
	} else {
		corrupted[0] = 'a'
	}
	if _, err := DecodePrincipal(string(corrupted)); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestAssetRefValidity(t *testing.T) {
	cases := []struct {
		ref   AssetRef
		valid bool
	}{
		{AssetRef{ChainSepolia, AssetETH}, true},
		{AssetRef{ChainSepolia, AssetUSDC}, true},
		{AssetRef{ChainSepolia, AssetEURC}, true},
		{AssetRef{ChainSepolia, AssetSOL}, false},
		{AssetRef{ChainSolanaDevnet, AssetSOL}, true},
		{AssetRef{ChainSolanaDevnet, AssetUSDC}, true},
		{AssetRef{ChainSolanaDevnet, AssetETH}, false},
		{AssetRef{Chain(99), AssetUSDC}, false},
		{AssetRef{ChainSepolia, Asset(99)}, false},
	}
	for _, tc := range cases {
		if got := tc.ref.Valid(); got != tc.valid {
			t.Errorf("%s: Valid() = %v, want %v", tc.ref, got, tc.valid)
		}
	}
}
