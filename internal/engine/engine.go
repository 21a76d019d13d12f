// Package engine implements the matching engine: the order book and
// settlement authority. It sequences intents per account, maintains the
// append-only hash-chained order log, and drives orders through the
// Locked → Settling → {Settled, Failed} / Cancelled state machine.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// Engine is a single logical sequencer. One mutex guards the order log,
// the per-account sequence counters, the monotonic id counter and the
// chain head; SubmitIntent, CancelOrder and the settlement driver are its
// only mutators.
type Engine struct {
	log  *zap.Logger
	feed *Feed

	mu       sync.Mutex
	orders   []*Order
	byID     map[uint64]*Order
	seqs     map[string]uint64
	lastHash []byte
	nextID   uint64
	halted   bool

	nowFunc func() time.Time // injectable clock for testing
}

// New creates an empty engine.
func New(log *zap.Logger) *Engine {
	return &Engine{
		log:     log,
		feed:    NewFeed(),
		byID:    make(map[uint64]*Order),
		seqs:    make(map[string]uint64),
		nextID:  1,
		nowFunc: time.Now,
	}
}

// Feed returns the engine's order-update feed.
func (e *Engine) Feed() *Feed {
	return e.feed
}

// NextSequence returns the next sequence number the account must use.
// New accounts start at 0.
func (e *Engine) NextSequence(account string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seqs[account]
}

// SubmitIntent verifies a signed intent and, if it carries the account's
// exact next sequence number, appends a Locked order to the log and
// returns its id. Verification is complete and independent: the engine
// never trusts a custody service's earlier checks. A rejected intent
// consumes neither an order id nor a sequence number.
func (e *Engine) SubmitIntent(ctx context.Context, intent *swap.Intent) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, swap.ErrTimeout
	}
	if err := swap.VerifyIntent(intent); err != nil {
		return 0, err
	}
	enc, err := swap.EncodeIntent(intent)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	if want := e.seqs[intent.Account]; intent.Sequence != want {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: got %d, expected %d", swap.ErrSequenceMismatch, intent.Sequence, want)
	}

	o := &Order{
		ID:        e.nextID,
		Status:    StatusLocked,
		Intent:    *intent,
		CreatedAt: e.nowFunc(),
		PrevHash:  e.lastHash,
	}
	o.Hash = contentHash(o.ID, enc, o.CreatedAt, o.PrevHash)

	e.orders = append(e.orders, o)
	e.byID[o.ID] = o
	e.lastHash = o.Hash
	e.nextID++
	e.seqs[intent.Account]++
	e.mu.Unlock()

	e.log.Info("order locked",
		zap.Uint64("order_id", o.ID),
		zap.String("account", intent.Account),
		zap.Uint64("sequence", intent.Sequence),
		zap.String("source", intent.Source.String()),
		zap.String("dest", intent.Dest.String()),
	)
	e.feed.Publish(OrderUpdate{ID: o.ID, Status: StatusLocked, Hash: o.Hash})
	return o.ID, nil
}

// CancelOrder aborts a Locked order. Once settlement has begun the order
// can no longer be cancelled; the transition is decided under the ledger
// lock, so a cancellation and a settlement can never race to different
// outcomes.
func (e *Engine) CancelOrder(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return swap.ErrTimeout
	}

	e.mu.Lock()
	o, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("order %d: %w", id, swap.ErrOrderNotFound)
	}
	switch o.Status {
	case StatusLocked:
		o.Status = StatusCancelled
	case StatusSettling:
		e.mu.Unlock()
		return fmt.Errorf("order %d: %w", id, swap.ErrAlreadySettling)
	default:
		status := o.Status
		e.mu.Unlock()
		return fmt.Errorf("order %d is %s: %w", id, status, swap.ErrNotCancellable)
	}
	e.mu.Unlock()

	e.log.Info("order cancelled", zap.Uint64("order_id", id))
	e.feed.Publish(OrderUpdate{ID: id, Status: StatusCancelled, Hash: e.hashOf(id)})
	return nil
}

// GetOrder returns a copy of the order, or ErrOrderNotFound.
func (e *Engine) GetOrder(id uint64) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, swap.ErrOrderNotFound)
	}
	return snapshot(o), nil
}

// ListOrders returns copies of all orders in submission order. Ids are
// strictly increasing; a reader never observes an order without also
// observing every earlier one.
func (e *Engine) ListOrders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, snapshot(o))
	}
	return out
}

// Halt pauses new settlement starts. In-flight settlements finish;
// Locked orders stay Locked (and cancellable) until Resume.
func (e *Engine) Halt() {
	e.mu.Lock()
	e.halted = true
	e.mu.Unlock()
	e.log.Warn("settlement halted")
}

// Resume lifts a halt.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.halted = false
	e.mu.Unlock()
	e.log.Info("settlement resumed")
}

// lockedOrders returns snapshots of orders currently in Locked state.
// Used by the settlement driver; returns nil while halted.
func (e *Engine) lockedOrders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted {
		return nil
	}
	var out []Order
	for _, o := range e.orders {
		if o.Status == StatusLocked {
			out = append(out, snapshot(o))
		}
	}
	return out
}

// claimSettling transitions Locked → Settling. Returns false if the order
// is no longer Locked (cancelled in the meantime, or already claimed).
func (e *Engine) claimSettling(id uint64) bool {
	e.mu.Lock()
	o, ok := e.byID[id]
	if !ok || o.Status != StatusLocked || e.halted {
		e.mu.Unlock()
		return false
	}
	o.Status = StatusSettling
	e.mu.Unlock()

	e.feed.Publish(OrderUpdate{ID: id, Status: StatusSettling, Hash: e.hashOf(id)})
	return true
}

// finalize resolves a Settling order to Settled or Failed. A failed
// settlement never reverts to Locked.
func (e *Engine) finalize(id uint64, result SettlementResult) {
	status := StatusSettled
	if !result.Ok {
		status = StatusFailed
	}

	e.mu.Lock()
	o, ok := e.byID[id]
	if !ok || o.Status != StatusSettling {
		e.mu.Unlock()
		return
	}
	o.Status = status
	o.Result = &result
	e.mu.Unlock()

	if result.Ok {
		e.log.Info("order settled", zap.Uint64("order_id", id), zap.String("tx_ref", result.TxRef))
	} else {
		e.log.Warn("order failed", zap.Uint64("order_id", id), zap.String("reason", result.Reason))
	}
	e.feed.Publish(OrderUpdate{ID: id, Status: status, Hash: e.hashOf(id)})
}

func (e *Engine) hashOf(id uint64) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.byID[id]; ok {
		return append([]byte(nil), o.Hash...)
	}
	return nil
}

// snapshot copies an order, detaching slice fields from the live record.
func snapshot(o *Order) Order {
	out := *o
	out.Hash = append([]byte(nil), o.Hash...)
	out.PrevHash = append([]byte(nil), o.PrevHash...)
	out.Intent.PubKey = append([]byte(nil), o.Intent.PubKey...)
	out.Intent.Signature = append([]byte(nil), o.Intent.Signature...)
	if o.Result != nil {
		r := *o.Result
		out.Result = &r
	}
	return out
}
