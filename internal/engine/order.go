package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// Status tracks the lifecycle of an order. Locked is the only initial
// state; Settled, Failed and Cancelled are terminal.
type Status uint8

const (
	StatusLocked Status = iota + 1
	StatusSettling
	StatusSettled
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusSettling:
		return "settling"
	case StatusSettled:
		return "settled"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusFailed || s == StatusCancelled
}

// SettlementResult records how the destination leg resolved.
type SettlementResult struct {
	Ok     bool
	TxRef  string
	Reason string
}

// Order is the engine's durable record of an accepted intent. Orders are
// created once and only mutated through defined status transitions; they
// are never deleted. Hash is the order's content hash and PrevHash the
// hash of the previously accepted order, forming an append-only chain
// across the whole log.
type Order struct {
	ID        uint64
	Status    Status
	Intent    swap.Intent
	CreatedAt time.Time
	Hash      []byte
	PrevHash  []byte
	Result    *SettlementResult
}

// contentHash computes an order's content hash from its immutable fields:
// keccak256 of the big-endian id, the canonical intent bytes, the
// creation time in nanoseconds, and the previous order's hash.
func contentHash(id uint64, intentBytes []byte, createdAt time.Time, prevHash []byte) []byte {
	var idBuf, tsBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	binary.BigEndian.PutUint64(tsBuf[:], uint64(createdAt.UnixNano()))
	return crypto.Keccak256(idBuf[:], intentBytes, tsBuf[:], prevHash)
}

// VerifyChain recomputes every order's content hash and back-reference
// over an id-ascending order list, detecting any tampering with the log.
func VerifyChain(orders []Order) error {
	var prev []byte
	for _, o := range orders {
		if !bytes.Equal(o.PrevHash, prev) {
			return fmt.Errorf("order %d: broken back-reference", o.ID)
		}
		enc, err := swap.EncodeIntent(&o.Intent)
		if err != nil {
			return fmt.Errorf("order %d: %w", o.ID, err)
		}
		if !bytes.Equal(o.Hash, contentHash(o.ID, enc, o.CreatedAt, o.PrevHash)) {
			return fmt.Errorf("order %d: content hash mismatch", o.ID)
		}
		prev = o.Hash
	}
	return nil
}
