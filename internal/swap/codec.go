package swap

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// EncodeIntent produces the canonical byte string an intent is signed
// over. The layout is fixed and versionless; signer, custody services and
// the matching engine must agree on it byte for byte:
//
//	principal raw bytes
//	1-byte source chain tag
//	1-byte source asset tag
//	1-byte dest chain tag
//	1-byte dest asset tag
//	8-byte big-endian amount
//	8-byte big-endian minimum output
//	8-byte big-endian sequence number
//	destination address, raw UTF-8, to end of buffer
//
// Signature fields are excluded. The destination address has no length
// prefix: it is the remainder. Nothing re-parses the tail; verifiers
// re-encode and compare.
func EncodeIntent(i *Intent) ([]byte, error) {
	principal, err := DecodePrincipal(i.Account)
	if err != nil {
		return nil, fmt.Errorf("encode intent: %w", err)
	}
	if !i.Source.Valid() {
		return nil, fmt.Errorf("encode intent: source %s: %w", i.Source, ErrUnsupportedAsset)
	}
	if !i.Dest.Valid() {
		return nil, fmt.Errorf("encode intent: dest %s: %w", i.Dest, ErrUnsupportedAsset)
	}

	buf := make([]byte, 0, len(principal)+4+24+len(i.DestAddress))
	buf = append(buf, principal...)
	buf = append(buf,
		byte(i.Source.Chain), byte(i.Source.Asset),
		byte(i.Dest.Chain), byte(i.Dest.Asset),
	)
	buf = binary.BigEndian.AppendUint64(buf, i.Amount)
	buf = binary.BigEndian.AppendUint64(buf, i.MinOut)
	buf = binary.BigEndian.AppendUint64(buf, i.Sequence)
	buf = append(buf, i.DestAddress...)
	return buf, nil
}

// IntentHash is the keccak256 digest of the canonical encoding. Deposit
// bindings and order content hashes key off it.
func IntentHash(i *Intent) ([32]byte, error) {
	enc, err := EncodeIntent(i)
	if err != nil {
		return [32]byte{}, err
	}
	var h [32]byte
	copy(h[:], crypto.Keccak256(enc))
	return h, nil
}
