package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed transaction store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `id, amount, status, sender_wallet_id, receiver_wallet_id,
        verification_code, code_expires_at, created_at, updated_at`

// Create inserts a transfer record.
func (s *PostgresStore) Create(ctx context.Context, txn Transaction) error {
	id, err := uuid.Parse(txn.ID)
	if err != nil {
		return err
	}
	senderID, err := uuid.Parse(txn.SenderWalletID)
	if err != nil {
		return err
	}
	receiverID, err := uuid.Parse(txn.ReceiverWalletID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `INSERT INTO transactions
        (id, amount, status, sender_wallet_id, receiver_wallet_id, verification_code, code_expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, txn.Amount, string(txn.Status), senderID, receiverID,
		txn.VerificationCode, txn.CodeExpiresAt.UTC(), txn.CreatedAt.UTC(), txn.UpdatedAt.UTC())
	return err
}

// GetByID fetches a transfer record by identifier.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Transaction, error) {
	txnUUID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, txnUUID)
	return scanTransaction(row)
}

// GetByCode fetches the transfer record most recently issued under a
// verification code. Codes are stored upper-case; callers normalize before
// lookup. A code may be reissued once its reservation lapses and the earlier
// transfer has resolved, so the newest row is the live one.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions
        WHERE verification_code = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`, code)
	return scanTransaction(row)
}

// TransitionStatus performs the atomic check-and-flip as a single conditional
// UPDATE; the row lock serializes racing flips so exactly one caller wins.
func (s *PostgresStore) TransitionStatus(ctx context.Context, id string, to Status, from ...Status) (bool, error) {
	txnUUID, err := uuid.Parse(id)
	if err != nil {
		return false, ErrNotFound
	}

	fromStatuses := make([]string, len(from))
	for i, status := range from {
		fromStatuses[i] = string(status)
	}

	tag, err := s.db.Exec(ctx, `UPDATE transactions
        SET status = $2, updated_at = now()
        WHERE id = $1 AND status = ANY($3)`, txnUUID, string(to), fromStatuses)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListStale pages over unresolved transfers whose code expired before cutoff.
func (s *PostgresStore) ListStale(ctx context.Context, cutoff time.Time, limit, offset int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM transactions
        WHERE status = ANY($1) AND code_expires_at < $2
        ORDER BY created_at ASC, id ASC
        LIMIT $3 OFFSET $4`,
		[]string{string(StatusPending), string(StatusFailed)}, cutoff.UTC(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, txn)
	}
	return stale, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var txn Transaction
	var id, senderID, receiverID uuid.UUID
	var status string
	var codeExpiresAt, createdAt, updatedAt time.Time

	err := row.Scan(&id, &txn.Amount, &status, &senderID, &receiverID,
		&txn.VerificationCode, &codeExpiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	txn.ID = id.String()
	txn.Status = Status(status)
	txn.SenderWalletID = senderID.String()
	txn.ReceiverWalletID = receiverID.String()
	txn.CodeExpiresAt = codeExpiresAt.UTC()
	txn.CreatedAt = createdAt.UTC()
	txn.UpdatedAt = updatedAt.UTC()
	return txn, nil
}
