// Package identity derives deterministic signing identities from
// human-chosen seed strings. This is a demo-grade convenience identity:
// the seed space is the only defense, and hardening it is deliberately
// out of scope. What matters is determinism — equal seeds yield equal
// keypairs and principals across processes and time.
package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// derivationSalt namespaces the key stretch so the same seed used with
// another tool yields unrelated key material.
const derivationSalt = "crosslane"

// Identity is a signing capability bound to a principal. The ed25519 seed
// lives encrypted at rest in a memguard Enclave and is only opened
// momentarily inside Sign.
type Identity struct {
	principal string
	pubDER    []byte
	enclave   *memguard.Enclave
}

// Derive builds the identity for a seed string. Pure function of its
// input: no randomness, no hidden state. Rejects empty or all-whitespace
// seeds rather than substituting a default.
func Derive(seed string) (*Identity, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, swap.ErrEmptySeed
	}

	// PBKDF2-SHA512 (2048 rounds) over the seed string; the first 32
	// bytes of the 64-byte stretch become the ed25519 seed.
	stretched := bip39.NewSeed(seed, derivationSalt)
	keySeed := make([]byte, ed25519.SeedSize)
	copy(keySeed, stretched[:ed25519.SeedSize])
	memguard.WipeBytes(stretched)

	priv := ed25519.NewKeyFromSeed(keySeed)
	pub := priv.Public().(ed25519.PublicKey)

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("identity: encode public key: %w", err)
	}
	memguard.WipeBytes(priv)

	return &Identity{
		principal: swap.EncodePrincipal(swap.PrincipalFromKey(der)),
		pubDER:    der,
		enclave:   memguard.NewEnclave(keySeed),
	}, nil
}

// Principal returns the textual account identifier derived from the
// public key.
func (id *Identity) Principal() string {
	return id.principal
}

// PublicKeyDER returns the DER SubjectPublicKeyInfo encoding of the
// public key.
func (id *Identity) PublicKeyDER() []byte {
	out := make([]byte, len(id.pubDER))
	copy(out, id.pubDER)
	return out
}

// Sign signs msg with the identity's private key. The enclave is opened
// into a locked buffer only for the duration of the call. ed25519 is
// deterministic, so equal identities produce equal signatures over equal
// messages.
func (id *Identity) Sign(msg []byte) ([]byte, error) {
	buf, err := id.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("identity: open enclave: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(buf.Bytes())
	buf.Destroy()

	sig := ed25519.Sign(priv, msg)
	memguard.WipeBytes(priv)
	return sig, nil
}
