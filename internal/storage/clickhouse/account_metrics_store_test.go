package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

func sampleMetrics() []*domain.AccountMetrics {
	return []*domain.AccountMetrics{
		{AccountID: "b", PnL: -50, TotalQuantity: 5, ROI: -10, TotalPositions: 1, TotalSellPositions: 1, NetPositions: -1},
		{AccountID: "a", PnL: 100, TotalQuantity: 10, ROI: 10, TotalPositions: 1, TotalBuyPositions: 1, NetPositions: 1,
			WinPositions: 1, WinRatePct: 100, TradeWeightScore: 1, TradeZScore: 0.8, TradeMLScore: 0.9},
	}
}

func TestAccountMetricsStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountMetricsStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleMetrics()))

	got, err := store.GetByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].AccountID)
	assert.Equal(t, -1, got[1].NetPositions)

	a, err := store.GetByAccount(ctx, "run1", "a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, a.PnL)
	assert.Equal(t, 0.9, a.TradeMLScore)
	assert.Equal(t, 1, a.WinPositions)
}

func TestAccountMetricsStore_Errors(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountMetricsStore(conn)
	ctx := context.Background()

	_, err := store.GetByAccount(ctx, "run1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleMetrics()))
	assert.ErrorIs(t, store.InsertBulk(ctx, "run1", sampleMetrics()), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertBulk(ctx, "", sampleMetrics()), storage.ErrInvalidInput)
}
