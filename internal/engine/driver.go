package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/custody"
	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// FundsOracle answers whether an intent's bound deposit address has been
// funded. Satisfied by the source chain's custody service.
type FundsOracle interface {
	DepositConfirmed(intent *swap.Intent) bool
	ClaimDeposit(intent *swap.Intent) (uint64, error)
}

// Transferer executes the destination leg. Satisfied by the destination
// chain's custody service.
type Transferer interface {
	Transfer(ctx context.Context, asset swap.AssetRef, account, dest string, amount uint64) (custody.TxRef, error)
}

// Driver is the engine's internal settlement loop. Each tick it scans
// Locked orders; for every order whose deposit is confirmed it claims the
// Settling transition and executes the destination transfer. The claim
// happens under the ledger lock, so a user cancellation can no longer win
// once settlement has begun; the remote transfer itself runs outside the
// lock.
type Driver struct {
	engine   *Engine
	oracles  map[swap.Chain]FundsOracle
	chains   map[swap.Chain]Transferer
	interval time.Duration
	log      *zap.Logger
}

// NewDriver wires a settlement driver to the engine and the per-chain
// custody services.
func NewDriver(e *Engine, oracles map[swap.Chain]FundsOracle, chains map[swap.Chain]Transferer, interval time.Duration, log *zap.Logger) *Driver {
	return &Driver{
		engine:   e,
		oracles:  oracles,
		chains:   chains,
		interval: interval,
		log:      log,
	}
}

// Run ticks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick performs one settlement pass. Exported so tests and the demo CLI
// can drive settlement synchronously.
func (d *Driver) Tick(ctx context.Context) {
	for _, o := range d.engine.lockedOrders() {
		d.settle(ctx, o)
	}
}

func (d *Driver) settle(ctx context.Context, o Order) {
	intent := o.Intent

	oracle, ok := d.oracles[intent.Source.Chain]
	if !ok {
		return
	}
	// The engine independently confirms funds receipt; an unfunded order
	// stays Locked and remains cancellable.
	if !oracle.DepositConfirmed(&intent) {
		return
	}

	if !d.engine.claimSettling(o.ID) {
		return // cancelled or claimed since the scan
	}

	if _, err := oracle.ClaimDeposit(&intent); err != nil {
		d.engine.finalize(o.ID, SettlementResult{Ok: false, Reason: err.Error()})
		return
	}

	dest, ok := d.chains[intent.Dest.Chain]
	if !ok {
		d.engine.finalize(o.ID, SettlementResult{
			Ok:     false,
			Reason: swap.ErrUnsupportedChain.Error(),
		})
		return
	}

	// The destination leg delivers the guaranteed minimum output.
	ref, err := dest.Transfer(ctx, intent.Dest, intent.Account, intent.DestAddress, intent.MinOut)
	if err != nil {
		d.log.Warn("destination transfer failed",
			zap.Uint64("order_id", o.ID),
			zap.Error(err),
		)
		d.engine.finalize(o.ID, SettlementResult{Ok: false, Reason: err.Error()})
		return
	}

	d.engine.finalize(o.ID, SettlementResult{Ok: true, TxRef: ref.ID})
}
