package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

func sampleTrades() []*domain.TradeRecord {
	return []*domain.TradeRecord{
		{TradeID: "t1", AccountID: "acc1", Seq: 0, Time: 1000, Symbol: "BTCUSDT", Side: domain.SideBuy,
			Price: 50000, Quantity: 500, Qty: 0.01, RealizedProfit: 12.5, Fee: 0.2,
			FeeAsset: "USDT", BaseAsset: "BTC", PositionSide: "BOTH", ActiveBuy: true},
		{TradeID: "t2", AccountID: "acc2", Seq: 1, Time: 2000, Symbol: "ETHUSDT", Side: domain.SideSell,
			Price: 3000, Quantity: 300, Qty: 0.1, RealizedProfit: -4, Fee: 0.1},
		{TradeID: "t3", AccountID: "acc1", Seq: 2, Time: 3000, Symbol: "BTCUSDT", Side: domain.SideSell,
			Price: 51000, Quantity: 510, Qty: 0.01, Fee: 0.2},
	}
}

func TestTradeRecordStore_InsertAndGet(t *testing.T) {
	pool := setupTestDB(t)

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleTrades()))

	got, err := store.GetByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, *sampleTrades()[0], *got[0])

	acc1, err := store.GetByAccount(ctx, "run1", "acc1")
	require.NoError(t, err)
	require.Len(t, acc1, 2)
	assert.Equal(t, "t3", acc1[1].TradeID)
}

func TestTradeRecordStore_DuplicateRun(t *testing.T) {
	pool := setupTestDB(t)

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", sampleTrades()))
	assert.ErrorIs(t, store.InsertBulk(ctx, "run1", sampleTrades()), storage.ErrDuplicateKey)
}

func TestTradeRecordStore_IntraBatchDuplicate(t *testing.T) {
	pool := setupTestDB(t)

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	trades := sampleTrades()
	trades[2].TradeID = "t1"
	assert.ErrorIs(t, store.InsertBulk(ctx, "run1", trades), storage.ErrDuplicateKey)

	got, err := store.GetByRun(ctx, "run1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
