package swap

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

// Signer is the capability needed to authorize an intent. Satisfied by
// identity.Identity.
type Signer interface {
	// Sign signs an arbitrary byte string with the identity's key.
	Sign(msg []byte) ([]byte, error)
	// PublicKeyDER returns the DER SubjectPublicKeyInfo encoding of the
	// identity's public key.
	PublicKeyDER() []byte
}

// SignIntent fills in the intent's signature fields: the canonical
// encoding is hashed with SHA-256 and the digest signed with ed25519.
// The signature is always over the canonical bytes, never over any
// display representation. It fails only if the signer cannot produce a
// signature or the intent cannot be canonically encoded.
func SignIntent(s Signer, i *Intent) error {
	enc, err := EncodeIntent(i)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(enc)

	sig, err := s.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign intent: %w", err)
	}

	i.Signature = sig
	i.PubKey = s.PublicKeyDER()
	i.Algo = AlgoEd25519
	return nil
}

// VerifyIntent checks a signed intent end to end: key encoding, signature
// over the canonical bytes, the binding between the signing key and the
// claimed account, and asset/chain pairing validity. Custody services and
// the matching engine both call this independently; neither trusts a
// prior check by the other.
func VerifyIntent(i *Intent) error {
	if i.Algo != AlgoEd25519 {
		return fmt.Errorf("algo %d: %w", i.Algo, ErrInvalidKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(i.PubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("%w: not an ed25519 key", ErrInvalidKey)
	}

	enc, err := EncodeIntent(i)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(enc)

	if len(i.Signature) != ed25519.SignatureSize || !ed25519.Verify(pub, digest[:], i.Signature) {
		return ErrInvalidSignature
	}

	if EncodePrincipal(PrincipalFromKey(i.PubKey)) != i.Account {
		return fmt.Errorf("%w: key does not derive principal %s", ErrUnauthorized, i.Account)
	}

	return nil
}
