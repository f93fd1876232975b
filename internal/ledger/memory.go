package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

// NewMemory creates a concurrency-safe in-memory wallet store useful for unit
// tests. The mutex serializes every mutation, matching the per-wallet
// serialization the Postgres store gets from conditional updates.
func NewMemory() Store {
	return &memoryStore{wallets: make(map[string]Wallet)}
}

func (s *memoryStore) CreateWallet(_ context.Context, ownerID string) (Wallet, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return Wallet{}, err
	}

	now := time.Now().UTC()
	wallet := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.ID] = wallet
	return wallet, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

func (s *memoryStore) ApplyDelta(_ context.Context, id string, delta, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[id]
	if !ok {
		return 0, ErrWalletNotFound
	}

	next := wallet.Balance + delta
	if next < floor {
		return 0, ErrInsufficientFunds
	}

	wallet.Balance = next
	wallet.UpdatedAt = time.Now().UTC()
	s.wallets[id] = wallet
	return next, nil
}
