// Package sweeper resolves stuck transfers. On a fixed cadence it scans for
// transfers whose verification code has been dead long enough to rule out a
// completion race and refunds the sender.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/transaction"
)

const (
	// DefaultInterval is the sweep cadence.
	DefaultInterval = 12 * time.Hour

	// DefaultPageSize bounds how many records one scan iteration loads.
	DefaultPageSize = 10

	// DefaultStaleGrace is how long past code expiry a transfer must sit
	// before it is considered abandoned.
	DefaultStaleGrace = 10 * time.Minute
)

// Config tunes the sweep schedule and selection window.
type Config struct {
	Interval   time.Duration
	PageSize   int
	StaleGrace time.Duration
}

// Sweeper is the reconciliation background job.
type Sweeper struct {
	txns    transaction.Store
	wallets ledger.Store
	logger  *slog.Logger
	cfg     Config
	running atomic.Bool
}

// New constructs a sweeper. Zero config values fall back to the deployment
// defaults.
func New(txns transaction.Store, wallets ledger.Store, logger *slog.Logger, cfg Config) *Sweeper {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.StaleGrace == 0 {
		cfg.StaleGrace = DefaultStaleGrace
	}
	return &Sweeper{txns: txns, wallets: wallets, logger: logger, cfg: cfg}
}

// Start runs sweeps on the configured interval until ctx is cancelled. Runs
// never overlap: a tick arriving while a run is still in progress is skipped.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunSweep(ctx); err != nil {
				s.logger.Error("sweep run failed", "error", err)
			}
		}
	}
}

// RunSweep performs one full reconciliation pass. It is idempotent: records
// refunded by an earlier pass are terminal and no longer selected, so running
// it again produces no further balance changes. Concurrent calls collapse to
// one run.
func (s *Sweeper) RunSweep(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	cutoff := time.Now().UTC().Add(-s.cfg.StaleGrace)
	refunded, failed := 0, 0

	for {
		// Refunded records drop out of the selection, so each fetch restarts
		// from the front and skips only the records that failed this run.
		page, err := s.txns.ListStale(ctx, cutoff, s.cfg.PageSize, failed)
		if err != nil {
			return fmt.Errorf("list stale transactions: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, txn := range page {
			selectable, err := s.refund(ctx, txn)
			if err != nil {
				// Only records still matching the scan count toward the
				// offset; anything else must not shift the next fetch.
				if selectable {
					failed++
				}
				s.logger.Error("refund failed", "transaction_id", txn.ID, "error", err)
				continue
			}
			refunded++
		}
	}

	if refunded > 0 || failed > 0 {
		s.logger.Info("sweep finished", "refunded", refunded, "failed", failed)
	}
	return nil
}

// refund reverses the initiation debit for one abandoned transfer. The status
// flip gates the credit: losing the flip means a racing completion (or an
// earlier sweep) already resolved the record, and no money moves. On failure
// the bool reports whether the record still matches the stale scan.
func (s *Sweeper) refund(ctx context.Context, txn transaction.Transaction) (bool, error) {
	won, err := s.txns.TransitionStatus(ctx, txn.ID, transaction.StatusRefunded,
		transaction.StatusPending, transaction.StatusFailed)
	if err != nil {
		return true, err
	}
	if !won {
		return false, nil
	}

	if _, err := s.wallets.ApplyDelta(ctx, txn.SenderWalletID, txn.Amount, 0); err != nil {
		// Demote so the record stays selectable and the credit is retried on
		// the next run.
		if _, demoteErr := s.txns.TransitionStatus(ctx, txn.ID, transaction.StatusFailed, transaction.StatusRefunded); demoteErr != nil {
			// Stuck at refunded: it has left the scan until the demote is
			// retried out of band, so it must not advance the offset.
			return false, fmt.Errorf("credit sender: %w (demote failed: %v)", err, demoteErr)
		}
		return true, fmt.Errorf("credit sender: %w", err)
	}
	return false, nil
}
