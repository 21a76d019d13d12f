// Package custody implements the per-chain custody services: account and
// one-time deposit addresses, the binding between a deposit address and
// the exact intent it was issued for, and outbound transfer execution.
package custody

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/config"
	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// Derivation domains. Changing either breaks every previously issued
// address.
const (
	accountDomain = "crosslane/account/v1"
	depositDomain = "crosslane/deposit/v1"
)

// SequenceSource exposes the matching engine's authoritative per-account
// sequence counter. The custody service checks it independently of the
// engine's own submission-time check.
type SequenceSource interface {
	NextSequence(account string) uint64
}

// TxRef identifies an executed outbound transfer. Attestation is the
// operator's ed25519 signature over the transfer record.
type TxRef struct {
	ID          string
	Attestation []byte
}

// Service is the custody service for a single settlement chain. Deposit
// bindings and balances are in-memory state; the actual on-chain transfer
// mechanics are opaque behind TxRefs.
type Service struct {
	chain    swap.Chain
	registry config.Registry
	seqs     SequenceSource
	operator *OperatorKey
	log      *zap.Logger

	mu       sync.Mutex
	bindings map[[32]byte]string               // intent hash → deposit address
	deposits map[string]map[swap.Asset]uint64  // deposit address → balances
	pool     map[swap.Asset]uint64             // liquidity for outbound legs
}

// NewService creates the custody service for one chain.
func NewService(chain swap.Chain, registry config.Registry, seqs SequenceSource, operator *OperatorKey, log *zap.Logger) (*Service, error) {
	if !chain.Valid() {
		return nil, fmt.Errorf("chain %d: %w", chain, swap.ErrUnsupportedChain)
	}
	if _, ok := registry[chain]; !ok {
		return nil, fmt.Errorf("%s not in registry: %w", chain, swap.ErrUnsupportedChain)
	}
	return &Service{
		chain:    chain,
		registry: registry,
		seqs:     seqs,
		operator: operator,
		log:      log,
		bindings: make(map[[32]byte]string),
		deposits: make(map[string]map[swap.Asset]uint64),
		pool:     make(map[swap.Asset]uint64),
	}, nil
}

// Chain returns the chain this service custodies.
func (s *Service) Chain() swap.Chain {
	return s.chain
}

// GetAddress returns the account's custody address on this chain,
// deterministically derived from the principal.
func (s *Service) GetAddress(account string) (string, error) {
	principal, err := swap.DecodePrincipal(account)
	if err != nil {
		return "", err
	}
	payload := append([]byte{byte(s.chain)}, principal...)
	return s.deriveAddress(accountDomain, payload), nil
}

// GetDepositAddress verifies a signed intent and issues the one-time
// deposit address bound to it. Checks run fail-fast in a fixed order:
// signature and key/account binding, exact-next sequence number, then
// source chain ownership. The address is derived from the canonical
// intent bytes, so any altered field yields a different address, and
// re-requesting for the identical intent is idempotent.
func (s *Service) GetDepositAddress(ctx context.Context, intent *swap.Intent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", swap.ErrTimeout
	}
	if err := swap.VerifyIntent(intent); err != nil {
		return "", err
	}
	if want := s.seqs.NextSequence(intent.Account); intent.Sequence != want {
		return "", fmt.Errorf("%w: got %d, expected %d", swap.ErrSequenceMismatch, intent.Sequence, want)
	}
	if intent.Source.Chain != s.chain {
		return "", fmt.Errorf("source %s on %s custody: %w", intent.Source, s.chain, swap.ErrUnsupportedChain)
	}

	enc, err := swap.EncodeIntent(intent)
	if err != nil {
		return "", err
	}
	hash, err := swap.IntentHash(intent)
	if err != nil {
		return "", err
	}

	addr := s.deriveAddress(depositDomain, enc)

	s.mu.Lock()
	s.bindings[hash] = addr
	s.mu.Unlock()

	s.log.Debug("deposit address issued",
		zap.String("chain", s.chain.String()),
		zap.String("account", intent.Account),
		zap.Uint64("sequence", intent.Sequence),
		zap.String("address", addr),
	)
	return addr, nil
}

// Credit records funds arriving at an address on this chain. It stands in
// for deposit detection, which is external to the core.
func (s *Service) Credit(address string, asset swap.Asset, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deposits[address] == nil {
		s.deposits[address] = make(map[swap.Asset]uint64)
	}
	s.deposits[address][asset] += amount
}

// FundPool adds outbound liquidity for an asset on this chain.
func (s *Service) FundPool(asset swap.Asset, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool[asset] += amount
}

// DepositConfirmed reports whether the deposit address bound to the
// intent holds at least the intent amount. The engine refuses to begin
// settlement until this is true.
func (s *Service) DepositConfirmed(intent *swap.Intent) bool {
	hash, err := swap.IntentHash(intent)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := s.bindings[hash]
	if !ok {
		return false
	}
	return s.deposits[addr][intent.Source.Asset] >= intent.Amount
}

// ClaimDeposit sweeps the funds bound to an intent into the pool. Funds
// at a deposit address can only ever be claimed under the exact intent
// the address was issued for.
func (s *Service) ClaimDeposit(intent *swap.Intent) (uint64, error) {
	hash, err := swap.IntentHash(intent)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := s.bindings[hash]
	if !ok {
		return 0, fmt.Errorf("no deposit binding for intent: %w", swap.ErrUnauthorized)
	}
	held := s.deposits[addr][intent.Source.Asset]
	if held < intent.Amount {
		return 0, fmt.Errorf("%w: %s requested %d, available %d",
			swap.ErrInsufficientBalance, intent.Source.Asset, intent.Amount, held)
	}
	s.deposits[addr][intent.Source.Asset] = held - intent.Amount
	s.pool[intent.Source.Asset] += intent.Amount
	return intent.Amount, nil
}

// TransferNative executes an outbound transfer of the chain's native
// token.
func (s *Service) TransferNative(ctx context.Context, account, dest string, amount uint64) (TxRef, error) {
	return s.Transfer(ctx, swap.AssetRef{Chain: s.chain, Asset: swap.NativeAsset(s.chain)}, account, dest, amount)
}

// Transfer executes an outbound transfer from the custody pool to dest.
// The on-chain mechanics are opaque: the call either yields a TxRef or an
// error. The returned TxRef carries the operator's attestation over the
// transfer record.
func (s *Service) Transfer(ctx context.Context, asset swap.AssetRef, account, dest string, amount uint64) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return TxRef{}, swap.ErrTimeout
	}
	if asset.Chain != s.chain {
		return TxRef{}, fmt.Errorf("%s on %s custody: %w", asset, s.chain, swap.ErrUnsupportedChain)
	}
	if !asset.Valid() {
		return TxRef{}, fmt.Errorf("%s: %w", asset, swap.ErrUnsupportedAsset)
	}
	if _, err := swap.DecodePrincipal(account); err != nil {
		return TxRef{}, err
	}

	s.mu.Lock()
	held := s.pool[asset.Asset]
	if held < amount {
		s.mu.Unlock()
		return TxRef{}, fmt.Errorf("%w: %s requested %d, available %d",
			swap.ErrInsufficientBalance, asset.Asset, amount, held)
	}
	s.pool[asset.Asset] = held - amount
	s.mu.Unlock()

	ref := fmt.Sprintf("%s-%s", s.registry[s.chain].Name, uuid.NewString())
	record := fmt.Sprintf("%s|%s|%s|%s|%d", ref, asset, account, dest, amount)
	att, err := s.operator.Attest([]byte(record))
	if err != nil {
		return TxRef{}, fmt.Errorf("%w: %v", swap.ErrTransferFailed, err)
	}

	s.log.Info("transfer executed",
		zap.String("chain", s.chain.String()),
		zap.String("asset", asset.Asset.String()),
		zap.String("dest", dest),
		zap.Uint64("amount", amount),
		zap.String("tx_ref", ref),
	)
	return TxRef{ID: ref, Attestation: att}, nil
}

// deriveAddress maps a domain-separated payload to a chain-native address
// string: keccak256, then the chain's address encoding (EIP-55 hex for
// EVM, base58 of the 32-byte digest for Solana).
func (s *Service) deriveAddress(domain string, payload []byte) string {
	h := crypto.Keccak256([]byte(domain), payload)
	switch s.chain {
	case swap.ChainSepolia:
		return common.BytesToAddress(h[12:]).Hex()
	case swap.ChainSolanaDevnet:
		return solana.PublicKeyFromBytes(h).String()
	default:
		return ""
	}
}
