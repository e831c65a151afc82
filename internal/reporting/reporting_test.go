package reporting

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
	"trade-leaderboard/internal/storage"
	"trade-leaderboard/internal/storage/memory"
)

func sampleRows() []*domain.AccountMetrics {
	return []*domain.AccountMetrics{
		{AccountID: "acc-b", PnL: -50, TotalPositions: 1, FirstTradeTime: 2000, LastTradeTime: 9000, TradeWeightScore: -0.5},
		{AccountID: "acc-a", PnL: 100, TotalPositions: 1, WinPositions: 1, WinRatePct: 100,
			FirstTradeTime: 1000, LastTradeTime: 5000, TradeWeightScore: 1},
	}
}

func sampleLeaderboard(runID string) *domain.Leaderboard {
	return &domain.Leaderboard{
		RunID: runID,
		Comparison: []domain.ComparisonRow{
			{Rank: 1, WSAccountID: "acc-a", WeightScore: 1, ZSAccountID: "acc-a", ZScore: 1, MLAccountID: "acc-a", MLScore: 0.9},
			{Rank: 2, WSAccountID: "acc-b", WeightScore: -0.5, ZSAccountID: "acc-b", ZScore: -1, MLAccountID: "acc-b", MLScore: -0.4},
		},
		Diagnostics: domain.FitDiagnostics{R2: 0.5, MAE: 0.1, TrainSize: 1, TestSize: 1},
	}
}

func setupGenerator(t *testing.T) *Generator {
	t.Helper()
	ctx := context.Background()

	metricsStore := memory.NewAccountMetricsStore()
	lbStore := memory.NewLeaderboardStore()
	require.NoError(t, metricsStore.InsertBulk(ctx, "run1", sampleRows()))
	require.NoError(t, lbStore.Insert(ctx, sampleLeaderboard("run1")))

	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewGenerator(metricsStore, lbStore).WithClock(clock)
}

func TestGenerator_Generate(t *testing.T) {
	gen := setupGenerator(t)

	info := RunInfo{
		DataSummary: DataSummary{Entries: 3, ParseFailures: 1, Trades: 2},
		DataQuality: []string{"entry 2: parse trade history"},
	}
	r, err := gen.Generate(context.Background(), "run1", info)
	require.NoError(t, err)

	assert.Equal(t, "run1", r.RunID)
	assert.Equal(t, 2, r.DataSummary.Accounts)
	assert.Equal(t, int64(1000), r.DataSummary.DateRangeStart)
	assert.Equal(t, int64(9000), r.DataSummary.DateRangeEnd)
	require.Len(t, r.Metrics, 2)
	assert.Equal(t, "acc-a", r.Metrics[0].AccountID)
	assert.Len(t, r.Leaderboard.WeightScore, 2)
}

func TestGenerator_MissingRun(t *testing.T) {
	gen := setupGenerator(t)

	_, err := gen.Generate(context.Background(), "missing", RunInfo{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRenderLeaderboardCSV(t *testing.T) {
	out := RenderLeaderboardCSV(sampleLeaderboard("run1").Comparison)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rank,WS_Ranking,Weight_Score,ZS_Ranking,Z-Score,ML_Ranking,Machine_Learning", lines[0])
	assert.Equal(t, "1,acc-a,1.000000,acc-a,1.000000,acc-a,0.900000", lines[1])
}

func TestRenderMetricsCSV(t *testing.T) {
	out := RenderMetricsCSV(sampleRows())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], ",")
	assert.Equal(t, len(MetricsHeader), len(header))
	assert.Equal(t, "Port_IDs", header[0])
	assert.True(t, strings.HasPrefix(lines[1], "acc-b,"))
	assert.Len(t, strings.Split(lines[1], ","), len(MetricsHeader))
}

func TestRenderMarkdown(t *testing.T) {
	gen := setupGenerator(t)
	r, err := gen.Generate(context.Background(), "run1", RunInfo{
		Suppression: SuppressionSection{
			CappedValues: 4,
			ReplacedRows: 1,
			Columns: []SuppressionColumn{
				{Name: "price", Lower: 1, Upper: 99, Median: 50, Before: stats.Describe([]float64{1, 50, 1000}), After: stats.Describe([]float64{1, 50, 99})},
			},
		},
	})
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# Trade Account Leaderboard")
	assert.Contains(t, md, "Generated: 2024-01-02T03:04:05Z")
	assert.Contains(t, md, "| 1 | acc-a | 1.0000 | acc-a | 1.0000 | acc-a | 0.9000 |")
	assert.Contains(t, md, "Capped values: 4 | Rows replaced with medians: 1")
	assert.Contains(t, md, "| price | before | 3 |")
	assert.Contains(t, md, "No data quality issues found.")
	assert.Contains(t, md, "| Test Size | 1 |")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{RunID: "x"})
	assert.Contains(t, md, "No leaderboard available.")
	assert.Contains(t, md, "No diagnostics available.")
}

func TestWriteWorkbook(t *testing.T) {
	gen := setupGenerator(t)
	r, err := gen.Generate(context.Background(), "run1", RunInfo{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetLeaderboard, SheetMetrics, SheetDiagnostics}, f.GetSheetList())

	rows, err := f.GetRows(SheetLeaderboard)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, LeaderboardHeader, rows[0])
	assert.Equal(t, "acc-a", rows[1][1])

	metrics, err := f.GetRows(SheetMetrics)
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, "acc-a", metrics[1][0])

	diag, err := f.GetRows(SheetDiagnostics)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run", "run1"}, diag[1])
}
