package swap

import "errors"

// Protocol error taxonomy. Custody services and the matching engine return
// these sentinels (possibly wrapped with detail); callers match with
// errors.Is. Signature, sequence and authorization failures are terminal
// for the call and must never be retried automatically.
var (
	ErrUnauthorized        = errors.New("account does not match signing key")
	ErrInvalidSignature    = errors.New("invalid intent signature")
	ErrInvalidKey          = errors.New("malformed public key encoding")
	ErrSequenceMismatch    = errors.New("sequence number is not the account's next expected value")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnsupportedAsset    = errors.New("unsupported asset for chain")
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadySettling     = errors.New("order already settling")
	ErrNotCancellable      = errors.New("order already resolved")
	ErrTransferFailed      = errors.New("chain transfer failed")
	ErrTimeout             = errors.New("remote call exceeded deadline")
	ErrEmptySeed           = errors.New("seed must not be empty")
)
