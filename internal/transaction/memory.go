package transaction

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.RWMutex
	byID map[string]Transaction
}

// NewMemory creates a concurrency-safe in-memory transaction store for unit
// tests.
func NewMemory() Store {
	return &memoryStore{
		byID: make(map[string]Transaction),
	}
}

func (s *memoryStore) Create(_ context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[txn.ID]; exists {
		return errors.New("transaction exists")
	}
	s.byID[txn.ID] = txn
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return txn, nil
}

// GetByCode returns the newest record carrying the code, mirroring the SQL
// ordering: a reissued code resolves to the live transfer, not a stale one.
func (s *memoryStore) GetByCode(_ context.Context, code string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest Transaction
	found := false
	for _, txn := range s.byID {
		if txn.VerificationCode != code {
			continue
		}
		if !found || txn.CreatedAt.After(newest.CreatedAt) ||
			(txn.CreatedAt.Equal(newest.CreatedAt) && txn.ID > newest.ID) {
			newest = txn
			found = true
		}
	}
	if !found {
		return Transaction{}, ErrNotFound
	}
	return newest, nil
}

func (s *memoryStore) TransitionStatus(_ context.Context, id string, to Status, from ...Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}

	eligible := false
	for _, status := range from {
		if txn.Status == status {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}

	txn.Status = to
	txn.UpdatedAt = time.Now().UTC()
	s.byID[id] = txn
	return true, nil
}

func (s *memoryStore) ListStale(_ context.Context, cutoff time.Time, limit, offset int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []Transaction
	for _, txn := range s.byID {
		if (txn.Status == StatusPending || txn.Status == StatusFailed) && txn.CodeExpiresAt.Before(cutoff) {
			stale = append(stale, txn)
		}
	}

	// Deterministic order so offset paging behaves like the SQL query.
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].CreatedAt.Equal(stale[j].CreatedAt) {
			return stale[i].ID < stale[j].ID
		}
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})

	if offset >= len(stale) {
		return nil, nil
	}
	stale = stale[offset:]
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}
