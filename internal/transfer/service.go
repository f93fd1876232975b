// Package transfer orchestrates two-phase, code-verified transfers between
// wallets: Initiate debits the sender and parks the funds behind a
// verification code; Complete releases them to the receiver.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/notification"
	"github.com/nile-pay/nile_pay/internal/transaction"
	"github.com/nile-pay/nile_pay/internal/verification"
)

var (
	// ErrIdenticalWallet occurs when sender and receiver are the same wallet.
	ErrIdenticalWallet = errors.New("sender and receiver wallet must differ")

	// ErrTransactionNotFound occurs when no transfer matches the id or code.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotPending occurs when completion is attempted on a transfer that has
	// already been resolved. The counterpart is told to contact support.
	ErrNotPending = errors.New("transaction is not pending")

	// ErrInvalidOrExpiredCode occurs when the presented code does not match or
	// its validity window has passed.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
)

const (
	// DefaultMinimumReserve is the balance, in minor units, a sender must
	// retain after a transfer debit.
	DefaultMinimumReserve = 100

	// DefaultCodeTTL is the verification code validity window.
	DefaultCodeTTL = 5 * time.Minute

	deltaAttempts = 3
)

// Config tunes the engine's business rules.
type Config struct {
	MinimumReserve int64
	CodeTTL        time.Duration
}

// Service is the transfer engine. It assumes callers are already authorized
// and validated; wallet ownership checks happen upstream.
type Service struct {
	wallets  ledger.Store
	txns     transaction.Store
	codes    *verification.Generator
	notifier notification.Notifier
	cfg      Config
}

// NewService constructs a transfer engine. Zero config values fall back to
// the deployment defaults.
func NewService(wallets ledger.Store, txns transaction.Store, codes *verification.Generator, notifier notification.Notifier, cfg Config) *Service {
	if cfg.MinimumReserve == 0 {
		cfg.MinimumReserve = DefaultMinimumReserve
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	return &Service{wallets: wallets, txns: txns, codes: codes, notifier: notifier, cfg: cfg}
}

// Initiate debits the sender and creates a pending transfer gated by a fresh
// verification code. The debit is rolled back if the record cannot be
// persisted.
func (s *Service) Initiate(ctx context.Context, senderWalletID, receiverWalletID string, amount int64) (transaction.Transaction, error) {
	if amount <= 0 {
		return transaction.Transaction{}, fmt.Errorf("amount must be positive")
	}
	if senderWalletID == receiverWalletID {
		return transaction.Transaction{}, ErrIdenticalWallet
	}

	sender, err := s.wallets.Get(ctx, senderWalletID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	receiver, err := s.wallets.Get(ctx, receiverWalletID)
	if err != nil {
		return transaction.Transaction{}, err
	}

	code, err := s.codes.Issue(ctx)
	if err != nil {
		return transaction.Transaction{}, err
	}

	// The floor keeps the sender above the reserve; the guard and the debit
	// are one atomic write, so racing initiations cannot both pass on the
	// same stale balance.
	if _, err := s.applyDelta(ctx, sender.ID, -amount, s.cfg.MinimumReserve); err != nil {
		return transaction.Transaction{}, err
	}

	now := time.Now().UTC()
	txn := transaction.Transaction{
		ID:               uuid.New().String(),
		Amount:           amount,
		Status:           transaction.StatusPending,
		SenderWalletID:   sender.ID,
		ReceiverWalletID: receiver.ID,
		VerificationCode: code,
		CodeExpiresAt:    now.Add(s.cfg.CodeTTL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.txns.Create(ctx, txn); err != nil {
		// Undo the debit so the failed initiation leaves no trace. A refund
		// credit cannot fail on funds.
		if _, rollbackErr := s.applyDelta(ctx, sender.ID, amount, 0); rollbackErr != nil {
			return transaction.Transaction{}, fmt.Errorf("create transaction: %w (debit rollback failed: %v)", err, rollbackErr)
		}
		return transaction.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCode,
			Destination: receiver.OwnerID,
			Body:        fmt.Sprintf("Confirm the incoming transfer of %d with code %s", amount, code),
		})
	}

	return txn, nil
}

// Complete resolves a pending transfer by its verification code, crediting
// the receiver. Only the caller that wins the atomic pending→completed flip
// applies the credit; a concurrent completion observes ErrNotPending and
// mutates nothing.
func (s *Service) Complete(ctx context.Context, code string) (transaction.Transaction, error) {
	presented := strings.ToUpper(strings.TrimSpace(code))

	txn, err := s.txns.GetByCode(ctx, presented)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return transaction.Transaction{}, ErrTransactionNotFound
		}
		return transaction.Transaction{}, err
	}

	if txn.Status != transaction.StatusPending {
		return transaction.Transaction{}, ErrNotPending
	}

	now := time.Now().UTC()
	if now.After(txn.CodeExpiresAt) || presented != txn.VerificationCode {
		return transaction.Transaction{}, ErrInvalidOrExpiredCode
	}

	won, err := s.txns.TransitionStatus(ctx, txn.ID, transaction.StatusCompleted, transaction.StatusPending)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if !won {
		return transaction.Transaction{}, ErrNotPending
	}

	// Second leg of the transfer. The sender was debited at initiation, so no
	// sender-side mutation happens here.
	if _, err := s.applyDelta(ctx, txn.ReceiverWalletID, txn.Amount, 0); err != nil {
		// Put the record back to pending so the funds are not stranded; a
		// retry or the reconciliation sweep will resolve it.
		if _, restoreErr := s.txns.TransitionStatus(ctx, txn.ID, transaction.StatusPending, transaction.StatusCompleted); restoreErr != nil {
			return transaction.Transaction{}, fmt.Errorf("credit receiver: %w (status restore failed: %v)", err, restoreErr)
		}
		return transaction.Transaction{}, fmt.Errorf("credit receiver: %w", err)
	}

	txn.Status = transaction.StatusCompleted
	txn.UpdatedAt = now
	return txn, nil
}

// Deposit credits a wallet directly, outside the two-phase flow.
func (s *Service) Deposit(ctx context.Context, walletID string, amount int64) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("amount must be positive")
	}
	if _, err := s.applyDelta(ctx, walletID, amount, 0); err != nil {
		return ledger.Wallet{}, err
	}
	return s.wallets.Get(ctx, walletID)
}

// GetTransaction retrieves a transfer by identifier.
func (s *Service) GetTransaction(ctx context.Context, id string) (transaction.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return transaction.Transaction{}, ErrTransactionNotFound
		}
		return transaction.Transaction{}, err
	}
	return txn, nil
}

// GetWallet retrieves a wallet by identifier.
func (s *Service) GetWallet(ctx context.Context, id string) (ledger.Wallet, error) {
	return s.wallets.Get(ctx, id)
}

// applyDelta forwards to the ledger with a bounded retry on write conflicts.
// The conflict sentinel never escapes to callers.
func (s *Service) applyDelta(ctx context.Context, walletID string, delta, floor int64) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < deltaAttempts; attempt++ {
		balance, err := s.wallets.ApplyDelta(ctx, walletID, delta, floor)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, ledger.ErrConcurrentModification) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("wallet %s: transient storage conflict: %v", walletID, lastErr)
}
