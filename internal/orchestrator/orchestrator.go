// Package orchestrator glues the client-side flow together: derive an
// identity, build and sign an intent, obtain the deposit address, deposit,
// submit, and poll to a terminal state. It owns the timeout discipline:
// a timed-out mutating call is never blindly retried, state is re-queried
// first.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/engine"
	"github.com/crosslane-xyz/crosslane/internal/identity"
	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// EngineClient is the matching-engine surface the orchestrator consumes.
// Satisfied by *engine.Engine in-process; a remote client implements the
// same contract.
type EngineClient interface {
	NextSequence(account string) uint64
	SubmitIntent(ctx context.Context, intent *swap.Intent) (uint64, error)
	GetOrder(id uint64) (engine.Order, error)
	ListOrders() []engine.Order
	CancelOrder(ctx context.Context, id uint64) error
}

// CustodyClient is the per-chain custody surface the orchestrator
// consumes. Satisfied by *custody.Service.
type CustodyClient interface {
	GetAddress(account string) (string, error)
	GetDepositAddress(ctx context.Context, intent *swap.Intent) (string, error)
	Credit(address string, asset swap.Asset, amount uint64)
}

// SwapParams are the user-specified swap parameters, in base units.
type SwapParams struct {
	Source      swap.AssetRef
	Dest        swap.AssetRef
	DestAddress string
	Amount      uint64
	MinOut      uint64
}

// Client drives the intent lifecycle end to end.
type Client struct {
	engine       EngineClient
	custody      map[swap.Chain]CustodyClient
	callTimeout  time.Duration
	pollInterval time.Duration
	log          *zap.Logger
}

// New creates an orchestrator client.
func New(eng EngineClient, cust map[swap.Chain]CustodyClient, callTimeout, pollInterval time.Duration, log *zap.Logger) *Client {
	return &Client{
		engine:       eng,
		custody:      cust,
		callTimeout:  callTimeout,
		pollInterval: pollInterval,
		log:          log,
	}
}

// BuildIntent assembles and signs an intent carrying the account's next
// sequence number.
func (c *Client) BuildIntent(id *identity.Identity, p SwapParams) (*swap.Intent, error) {
	intent := &swap.Intent{
		Account:     id.Principal(),
		Source:      p.Source,
		Dest:        p.Dest,
		DestAddress: p.DestAddress,
		Amount:      p.Amount,
		MinOut:      p.MinOut,
		Sequence:    c.engine.NextSequence(id.Principal()),
	}
	if err := swap.SignIntent(id, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// Swap runs the whole flow for a signed intent: deposit-address request,
// deposit (the on-chain leg is external; Credit stands in for it here),
// then submission. Returns the order id.
func (c *Client) Swap(ctx context.Context, intent *swap.Intent) (uint64, error) {
	cust, ok := c.custody[intent.Source.Chain]
	if !ok {
		return 0, fmt.Errorf("%s: %w", intent.Source.Chain, swap.ErrUnsupportedChain)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	depositAddr, err := cust.GetDepositAddress(callCtx, intent)
	cancel()
	if err != nil {
		return 0, err
	}
	c.log.Info("deposit address issued", zap.String("address", depositAddr))

	// On-chain deposit happens out of band; the demo credits directly.
	cust.Credit(depositAddr, intent.Source.Asset, intent.Amount)

	return c.submit(ctx, intent)
}

// submit sends the intent, recovering from timeouts by re-querying state
// rather than resubmitting blind: a timed-out SubmitIntent may still have
// taken effect remotely.
func (c *Client) submit(ctx context.Context, intent *swap.Intent) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	id, err := c.engine.SubmitIntent(callCtx, intent)
	cancel()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, swap.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		// Signature, sequence and authorization failures are terminal
		// for this call; surface them verbatim.
		return 0, err
	}

	c.log.Warn("submit timed out, re-querying", zap.Uint64("sequence", intent.Sequence))

	if c.engine.NextSequence(intent.Account) > intent.Sequence {
		// The call took effect. Find the order it created.
		for _, o := range c.engine.ListOrders() {
			if o.Intent.Account == intent.Account && o.Intent.Sequence == intent.Sequence {
				return o.ID, nil
			}
		}
		return 0, fmt.Errorf("sequence consumed but order missing: %w", swap.ErrOrderNotFound)
	}

	// Confirmed not landed; one clean retry.
	callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.engine.SubmitIntent(callCtx, intent)
}

// AwaitTerminal polls the order until it reaches a terminal state or ctx
// expires. Polling is read-only and side-effect free.
func (c *Client) AwaitTerminal(ctx context.Context, id uint64) (engine.Order, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		o, err := c.engine.GetOrder(id)
		if err != nil {
			return engine.Order{}, err
		}
		if o.Status.Terminal() {
			return o, nil
		}
		select {
		case <-ctx.Done():
			return o, swap.ErrTimeout
		case <-ticker.C:
		}
	}
}

// Cancel aborts a Locked order.
func (c *Client) Cancel(ctx context.Context, id uint64) error {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.engine.CancelOrder(callCtx, id)
}
