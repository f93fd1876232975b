package transaction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newStaleTxn(createdAt time.Time, status Status) Transaction {
	return Transaction{
		ID:               uuid.NewString(),
		Amount:           1_000,
		Status:           status,
		SenderWalletID:   uuid.NewString(),
		ReceiverWalletID: uuid.NewString(),
		VerificationCode: fmt.Sprintf("TKN-%06d", createdAt.UnixNano()%1_000_000),
		CodeExpiresAt:    createdAt.Add(5 * time.Minute),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	txn := newStaleTxn(time.Now().UTC(), StatusPending)
	if err := s.Create(ctx, txn); err != nil {
		t.Fatalf("create: %v", err)
	}

	byID, err := s.GetByID(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.VerificationCode != txn.VerificationCode {
		t.Fatalf("unexpected code %s", byID.VerificationCode)
	}

	byCode, err := s.GetByCode(ctx, txn.VerificationCode)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode.ID != txn.ID {
		t.Fatalf("expected id %s, got %s", txn.ID, byCode.ID)
	}

	if _, err := s.GetByID(ctx, uuid.NewString()); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_GetByCodeReusedCode(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	// A code may be reissued after its reservation lapses, so a long-resolved
	// record can share a code with a live pending one.
	old := newStaleTxn(now.Add(-time.Hour), StatusRefunded)
	old.VerificationCode = "TKN-123456"
	if err := s.Create(ctx, old); err != nil {
		t.Fatalf("create old: %v", err)
	}

	fresh := newStaleTxn(now, StatusPending)
	fresh.VerificationCode = "TKN-123456"
	if err := s.Create(ctx, fresh); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	got, err := s.GetByCode(ctx, "TKN-123456")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.ID != fresh.ID {
		t.Fatalf("expected newest record %s, got %s", fresh.ID, got.ID)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
}

func TestMemoryStore_TransitionStatus(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	txn := newStaleTxn(time.Now().UTC(), StatusPending)
	if err := s.Create(ctx, txn); err != nil {
		t.Fatalf("create: %v", err)
	}

	won, err := s.TransitionStatus(ctx, txn.ID, StatusCompleted, StatusPending)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !won {
		t.Fatalf("expected first transition to win")
	}

	// The record is no longer pending; a second flip must lose.
	won, err = s.TransitionStatus(ctx, txn.ID, StatusRefunded, StatusPending, StatusFailed)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if won {
		t.Fatalf("transition from terminal status must not win")
	}

	fetched, _ := s.GetByID(ctx, txn.ID)
	if fetched.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", fetched.Status)
	}
}

func TestMemoryStore_ListStalePaging(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 7; i++ {
		txn := newStaleTxn(base.Add(time.Duration(i)*time.Minute), StatusPending)
		if err := s.Create(ctx, txn); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	// Fresh pending record must not be selected.
	fresh := newStaleTxn(time.Now().UTC(), StatusPending)
	if err := s.Create(ctx, fresh); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	cutoff := time.Now().UTC().Add(-10 * time.Minute)

	first, err := s.ListStale(ctx, cutoff, 5, 0)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected page of 5, got %d", len(first))
	}
	if !first[0].CreatedAt.Before(first[4].CreatedAt) {
		t.Fatalf("expected ascending creation order")
	}

	second, err := s.ListStale(ctx, cutoff, 5, 5)
	if err != nil {
		t.Fatalf("list stale offset: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected remainder of 2, got %d", len(second))
	}

	empty, err := s.ListStale(ctx, cutoff, 5, 7)
	if err != nil {
		t.Fatalf("list stale past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}
