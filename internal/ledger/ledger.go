package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWalletNotFound occurs when the referenced wallet id does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a debit would take the wallet balance
	// below the floor the caller requires.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrentModification signals a storage-level write conflict. Callers
	// retry a bounded number of times; it is never returned to end users.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Wallet is a stored-value account. Balance is held in minor currency units,
// so two-decimal money is represented exactly.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store owns wallet balances. Every balance change in the system goes through
// ApplyDelta, which is the single place the non-negativity and reserve rules
// are enforced.
type Store interface {
	CreateWallet(ctx context.Context, ownerID string) (Wallet, error)
	Get(ctx context.Context, id string) (Wallet, error)

	// ApplyDelta atomically adjusts the wallet balance by delta (signed) and
	// returns the new balance. The write succeeds only if the resulting
	// balance is at least floor; otherwise ErrInsufficientFunds is returned
	// and nothing is mutated. Callers pass the configured reserve as the
	// floor for transfer debits and zero for credits, which therefore always
	// succeed on an existing wallet.
	ApplyDelta(ctx context.Context, id string, delta, floor int64) (int64, error)
}
