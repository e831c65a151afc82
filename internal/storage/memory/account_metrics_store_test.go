package memory

import (
	"context"
	"errors"
	"testing"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

func TestAccountMetricsStore_InsertAndGet(t *testing.T) {
	store := NewAccountMetricsStore()
	ctx := context.Background()

	rows := []*domain.AccountMetrics{
		{AccountID: "b", PnL: -50, WinRatePct: 0},
		{AccountID: "a", PnL: 100, WinRatePct: 100},
	}
	if err := store.InsertBulk(ctx, "run1", rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 2 || got[0].AccountID != "a" || got[1].AccountID != "b" {
		t.Fatalf("expected rows ordered by account_id, got %+v", got)
	}

	a, err := store.GetByAccount(ctx, "run1", "a")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if a.PnL != 100 {
		t.Errorf("PnL mismatch: got %f, want 100", a.PnL)
	}
}

func TestAccountMetricsStore_NotFound(t *testing.T) {
	store := NewAccountMetricsStore()

	_, err := store.GetByAccount(context.Background(), "run1", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountMetricsStore_Duplicate(t *testing.T) {
	store := NewAccountMetricsStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "run1", []*domain.AccountMetrics{{AccountID: "a"}}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, "run1", []*domain.AccountMetrics{{AccountID: "b"}, {AccountID: "a"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Same account in another run is fine.
	if err := store.InsertBulk(ctx, "run2", []*domain.AccountMetrics{{AccountID: "a"}}); err != nil {
		t.Errorf("insert into second run failed: %v", err)
	}

	got, _ := store.GetByRun(ctx, "run1")
	if len(got) != 1 {
		t.Errorf("failed batch must not be partially applied, got %d rows", len(got))
	}
}
