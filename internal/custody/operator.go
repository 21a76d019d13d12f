package custody

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/awnumar/memguard"
)

// OperatorKey is the custody service's own signing key. Every executed
// transfer is attested with it so settlement results can be audited
// against the operator's public key. The key seed lives in a memguard
// Enclave, opened only inside Attest.
type OperatorKey struct {
	enclave *memguard.Enclave
	pub     ed25519.PublicKey
}

// NewOperatorKey seals a 32-byte ed25519 seed. The input slice is wiped.
func NewOperatorKey(keySeed []byte) (*OperatorKey, error) {
	if len(keySeed) != ed25519.SeedSize {
		memguard.WipeBytes(keySeed)
		return nil, fmt.Errorf("operator key seed must be %d bytes, got %d", ed25519.SeedSize, len(keySeed))
	}
	priv := ed25519.NewKeyFromSeed(keySeed)
	pub := priv.Public().(ed25519.PublicKey)
	memguard.WipeBytes(priv)

	return &OperatorKey{
		enclave: memguard.NewEnclave(keySeed),
		pub:     pub,
	}, nil
}

// OperatorKeyFromSeed derives a dev operator key from a config seed
// string. Production uses a KMS-decrypted ciphertext instead.
func OperatorKeyFromSeed(seed string) (*OperatorKey, error) {
	sum := sha256.Sum256([]byte("crosslane/operator/" + seed))
	return NewOperatorKey(sum[:])
}

// PublicKey returns the operator's verification key.
func (k *OperatorKey) PublicKey() ed25519.PublicKey {
	return k.pub
}

// Attest signs a transfer record payload.
func (k *OperatorKey) Attest(payload []byte) ([]byte, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("operator key: open enclave: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(buf.Bytes())
	buf.Destroy()

	sig := ed25519.Sign(priv, payload)
	memguard.WipeBytes(priv)
	return sig, nil
}
