package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryStore_ApplyDeltaFloor(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	wallet, err := s.CreateWallet(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	SeedBalance(s, wallet.ID, 150)

	if _, err := s.ApplyDelta(ctx, wallet.ID, -100, 100); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	fetched, err := s.Get(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.Balance != 150 {
		t.Fatalf("balance mutated on rejected debit: %d", fetched.Balance)
	}
}

func TestMemoryStore_ApplyDeltaUnknownWallet(t *testing.T) {
	s := NewMemory()

	if _, err := s.ApplyDelta(context.Background(), uuid.NewString(), 100, 0); err != ErrWalletNotFound {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestMemoryStore_CreditAlwaysSucceeds(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	wallet, err := s.CreateWallet(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	balance, err := s.ApplyDelta(ctx, wallet.ID, 500, 0)
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected balance 500, got %d", balance)
	}
}

func TestMemoryStore_ConcurrentDebits(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	wallet, err := s.CreateWallet(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	SeedBalance(s, wallet.ID, 10_000)

	const workers = 50
	const amount = int64(100)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ApplyDelta(ctx, wallet.ID, -amount, 0); err != nil {
				t.Errorf("debit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	fetched, err := s.Get(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.Balance != 5_000 {
		t.Fatalf("expected balance 5000 after concurrent debits, got %d", fetched.Balance)
	}
}

func TestMemoryStore_ConcurrentDebitsRespectFloor(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	wallet, err := s.CreateWallet(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	SeedBalance(s, wallet.ID, 1_000)

	// Two debits of 500 against a floor of 100: only one may pass.
	var wg sync.WaitGroup
	successes := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ApplyDelta(ctx, wallet.ID, -500, 100); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one debit to succeed, got %d", count)
	}
}
