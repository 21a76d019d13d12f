package swap

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"strings"
)

// Principals are self-authenticating account identifiers: SHA-224 over the
// DER-encoded public key with a 0x02 discriminator byte appended. Equal
// keys always produce equal principals, so the binding between an intent's
// Account field and its PubKey can be checked without a registry.

var ErrInvalidPrincipal = errors.New("malformed principal")

const principalGroupLen = 5

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// PrincipalFromKey derives the raw 29-byte principal for a DER-encoded
// public key.
func PrincipalFromKey(derPubKey []byte) []byte {
	sum := sha256.Sum224(derPubKey)
	return append(sum[:], 0x02)
}

// EncodePrincipal renders raw principal bytes in their textual form:
// base32 (lowercase, unpadded) over a CRC-32 check prefix plus the raw
// bytes, split into dash-separated groups of five.
func EncodePrincipal(raw []byte) string {
	buf := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(raw))
	copy(buf[4:], raw)

	enc := strings.ToLower(principalEncoding.EncodeToString(buf))

	var b strings.Builder
	for i := 0; i < len(enc); i += principalGroupLen {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + principalGroupLen
		if end > len(enc) {
			end = len(enc)
		}
		b.WriteString(enc[i:end])
	}
	return b.String()
}

// DecodePrincipal parses the textual form back into raw principal bytes,
// verifying the check prefix.
func DecodePrincipal(text string) ([]byte, error) {
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	buf, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return nil, ErrInvalidPrincipal
	}
	if len(buf) <= 4 {
		return nil, ErrInvalidPrincipal
	}
	raw := buf[4:]
	if binary.BigEndian.Uint32(buf[:4]) != crc32.ChecksumIEEE(raw) {
		return nil, ErrInvalidPrincipal
	}
	return raw, nil
}
