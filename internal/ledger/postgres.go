package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet row with a zero balance.
func (s *PostgresStore) CreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, err
	}

	now := time.Now().UTC()
	wallet := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   owner.String(),
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)`, wallet.ID, owner, wallet.Balance, now, now)
	if err != nil {
		return Wallet{}, mapPgError(err)
	}
	return wallet, nil
}

// Get fetches a wallet by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}

	row := s.db.QueryRow(ctx, `SELECT id, owner_id, balance, created_at, updated_at
        FROM wallets WHERE id = $1`, walletUUID)

	var w Wallet
	var idVal, ownerID uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&idVal, &ownerID, &w.Balance, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, mapPgError(err)
	}
	w.ID = idVal.String()
	w.OwnerID = ownerID.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

// ApplyDelta adjusts the balance in a single conditional UPDATE. The floor
// guard rides in the WHERE clause so the read-check-write collapses into one
// atomic statement and concurrent deltas on the same row serialize on the row
// lock.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta, floor int64) (int64, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrWalletNotFound
	}

	var balance int64
	err = s.db.QueryRow(ctx, `UPDATE wallets
        SET balance = balance + $2, updated_at = now()
        WHERE id = $1 AND balance + $2 >= $3
        RETURNING balance`, walletUUID, delta, floor).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, mapPgError(err)
	}

	// No row matched: either the wallet is missing or the floor guard failed.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, walletUUID).Scan(&exists); err != nil {
		return 0, mapPgError(err)
	}
	if !exists {
		return 0, ErrWalletNotFound
	}
	return 0, ErrInsufficientFunds
}

// mapPgError converts serialization failures into the retryable sentinel.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return ErrConcurrentModification
	}
	return err
}
