package postgres

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
		{AccountID: "b", PnL: -50, TotalQuantity: 5, ROI: -10, TotalPositions: 1, TotalSellPositions: 1, NetPositions: -1,
			FirstTradeTime: 1000, LastTradeTime: 1000},
		{AccountID: "a", PnL: 100, TotalQuantity: 10, ROI: 10, TotalPositions: 1, TotalBuyPositions: 1, NetPositions: 1,
			WinPositions: 1, WinRatePct: 100, UniqueAssets: 1, FirstTradeTime: 1000, LastTradeTime: 7201000,
			TradingDurationHours: 2, AvgTradesPerHour: 0.5, TradeWeightScore: 1, TradeZScore: 0.8, TradeMLScore: 0.9},
	}
}

func TestAccountMetricsStore_InsertAndGet(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAccountMetricsStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleMetrics()))

	got, err := store.GetByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].AccountID)
	assert.Equal(t, "b", got[1].AccountID)
	assert.Equal(t, -1, got[1].NetPositions)

	a, err := store.GetByAccount(ctx, "run1", "a")
	require.NoError(t, err)
	assert.Equal(t, *sampleMetrics()[1], *a)
}

func TestAccountMetricsStore_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAccountMetricsStore(pool)
	_, err := store.GetByAccount(context.Background(), "run1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountMetricsStore_DuplicateRollsBack(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAccountMetricsStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleMetrics()[:1]))

	err := store.InsertBulk(ctx, "run1", sampleMetrics())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRun(ctx, "run1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
