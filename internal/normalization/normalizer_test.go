package normalization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"trade-leaderboard/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

const sampleHistory = `[{'time': 1718899656000, 'symbol': 'SOLUSDT', 'side': 'BUY', 'price': 132.53, ` +
	`'fee': -1.3253, 'feeAsset': 'USDT', 'quantity': 2650.6, 'quantityAsset': 'USDT', ` +
	`'realizedProfit': 0.0, 'realizedProfitAsset': 'USDT', 'baseAsset': 'SOL', 'qty': 20.0, ` +
	`'positionSide': 'BOTH', 'activeBuy': True}, ` +
	`{'time': 1718899700000, 'symbol': 'SOLUSDT', 'side': 'SELL', 'price': 133.0, ` +
	`'fee': 0.5, 'feeAsset': None, 'quantity': 1330.0, 'quantityAsset': 'USDT', ` +
	`'realizedProfit': 9.4, 'realizedProfitAsset': 'USDT', 'baseAsset': 'SOL', 'qty': 10.0, ` +
	`'positionSide': 'BOTH', 'activeBuy': False}]`

func TestNormalize_TextHistory(t *testing.T) {
	n := NewNormalizer(nil)

	trades, stats, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "acc1", TradeHistory: domain.TextHistory(sampleHistory)},
	})
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "acc1", trades[0].AccountID)
	assert.Equal(t, int64(1718899656000), trades[0].Time)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.Equal(t, 2650.6, trades[0].Quantity)
	assert.Equal(t, 20.0, trades[0].Qty)
	assert.True(t, trades[0].ActiveBuy)

	assert.Equal(t, domain.SideSell, trades[1].Side)
	assert.Equal(t, 9.4, trades[1].RealizedProfit)
	assert.False(t, trades[1].ActiveBuy)
	// feeAsset was None -> forward-filled from the previous row
	assert.Equal(t, "USDT", trades[1].FeeAsset)

	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, 1, stats.ForwardFilled)
	assert.NotEqual(t, trades[0].TradeID, trades[1].TradeID)
}

func TestNormalize_StructuredPassThrough(t *testing.T) {
	n := NewNormalizer(nil)
	items := []domain.RawTrade{
		{Time: ptr(int64(1000)), Side: ptr("BUY"), RealizedProfit: ptr(100.0), Quantity: ptr(10.0)},
	}

	got, err := n.ParseHistory("acc", domain.StructuredHistory(items))
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestNormalize_InvalidTextIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewNormalizer(zap.New(core))

	trades, stats, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "broken", TradeHistory: domain.TextHistory("[invalid")},
		{AccountID: "ok", TradeHistory: domain.TextHistory(sampleHistory)},
	})
	require.NoError(t, err)

	for _, tr := range trades {
		assert.NotEqual(t, "broken", tr.AccountID)
	}
	assert.Len(t, trades, 2)
	assert.Equal(t, 1, stats.ParseFailures)

	entries := logs.FilterMessage("parse trade history").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["account_id"])
}

func TestNormalize_UnknownAndEmptyPayloads(t *testing.T) {
	n := NewNormalizer(nil)

	trades, stats, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "unknown", TradeHistory: domain.TradeHistory{}},
		{AccountID: "empty", TradeHistory: domain.TextHistory("[]")},
		{AccountID: "ok", TradeHistory: domain.TextHistory(sampleHistory)},
	})
	require.NoError(t, err)
	assert.Len(t, trades, 2)
	assert.Equal(t, 1, stats.UnknownPayloads)
	assert.Equal(t, 1, stats.EmptyHistories)
}

func TestNormalize_MissingAccountIDIsFatal(t *testing.T) {
	n := NewNormalizer(nil)

	_, _, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "", TradeHistory: domain.TextHistory(sampleHistory)},
	})
	assert.ErrorIs(t, err, ErrMissingAccountID)
}

func TestNormalize_EmptyTableIsFatal(t *testing.T) {
	n := NewNormalizer(nil)

	_, _, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "a", TradeHistory: domain.TextHistory("[invalid")},
		{AccountID: "b", TradeHistory: domain.TextHistory("[]")},
	})
	assert.ErrorIs(t, err, ErrNoTrades)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer(nil)
	ctx := context.Background()

	entry := domain.RawAccountEntry{AccountID: "acc1", TradeHistory: domain.TextHistory(sampleHistory)}
	canonical := n.Canonicalize(entry)
	require.Equal(t, domain.HistoryStructured, canonical.TradeHistory.Kind)

	fromText, _, err := n.Normalize(ctx, []domain.RawAccountEntry{entry})
	require.NoError(t, err)
	fromStructured, _, err := n.Normalize(ctx, []domain.RawAccountEntry{canonical})
	require.NoError(t, err)
	assert.Equal(t, fromText, fromStructured)

	again := n.Canonicalize(canonical)
	assert.Equal(t, canonical, again)
}

func TestNormalize_ForwardFillCrossesEntries(t *testing.T) {
	n := NewNormalizer(nil)

	trades, _, err := n.Normalize(context.Background(), []domain.RawAccountEntry{
		{AccountID: "a", TradeHistory: domain.StructuredHistory([]domain.RawTrade{
			{Symbol: ptr("BTCUSDT"), Price: ptr(100.0), Side: ptr("BUY")},
		})},
		{AccountID: "b", TradeHistory: domain.StructuredHistory([]domain.RawTrade{
			{Side: ptr("SELL")},
		})},
	})
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "BTCUSDT", trades[1].Symbol)
	assert.Equal(t, 100.0, trades[1].Price)
	assert.Equal(t, domain.SideSell, trades[1].Side)
	// never seen -> zero
	assert.Equal(t, 0.0, trades[1].Quantity)
}

func TestNormalize_ContextCancelled(t *testing.T) {
	n := NewNormalizer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := n.Normalize(ctx, []domain.RawAccountEntry{
		{AccountID: "a", TradeHistory: domain.TextHistory(sampleHistory)},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
