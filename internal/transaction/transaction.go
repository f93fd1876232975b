package transaction

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound occurs when no transaction matches the given id or code.
var ErrNotFound = errors.New("transaction not found")

// Status is the lifecycle state of a transfer. Transitions only move forward:
// pending resolves to completed, failed, or refunded; completed and refunded
// are terminal; failed may still be refunded by the reconciliation sweep.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Transaction is a code-gated transfer between two wallets. The sender is
// debited when the record is created; the receiver is credited when the
// verification code is presented in time.
type Transaction struct {
	ID               string
	Amount           int64
	Status           Status
	SenderWalletID   string
	ReceiverWalletID string
	VerificationCode string
	CodeExpiresAt    time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Store persists transfer records with atomic status transitions.
type Store interface {
	Create(ctx context.Context, txn Transaction) error
	GetByID(ctx context.Context, id string) (Transaction, error)
	GetByCode(ctx context.Context, code string) (Transaction, error)

	// TransitionStatus flips the record to the target status only if it is
	// currently in one of the from statuses. It reports false, without
	// mutating anything, when the record has already moved on. This
	// check-and-flip is the concurrency control point gating every balance
	// effect after initiation.
	TransitionStatus(ctx context.Context, id string, to Status, from ...Status) (bool, error)

	// ListStale returns a fixed-size page of unresolved transfers (pending or
	// failed) whose code expired before cutoff, ordered by creation time.
	ListStale(ctx context.Context, cutoff time.Time, limit, offset int) ([]Transaction, error)
}
