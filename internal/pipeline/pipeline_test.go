package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-leaderboard/internal/config"
	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/ingestion/stub"
	"trade-leaderboard/internal/normalization"
	"trade-leaderboard/internal/observability"
	"trade-leaderboard/internal/storage/memory"
)

var fixedTime = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Ranking.Regression.Forest.Trees = 10
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestPipeline(cfg *config.Config, entries []domain.RawAccountEntry) *Pipeline {
	return New(cfg, stub.NewStubEntrySource(entries), nil).WithClock(func() time.Time { return fixedTime })
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPipeline_Run(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(cfg, FixtureEntries(FixtureAccounts))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	for _, name := range []string{MetricsCSVFile, LeaderboardCSVFile, ReportFile, WorkbookFile, MetricsTextfile} {
		path := filepath.Join(cfg.Output.Dir, name)
		assert.FileExists(t, path)
		assert.Contains(t, res.Files, path)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, filepath.Join(cfg.Output.Dir, LeaderboardCSVFile))), "\n")
	require.Len(t, lines, 21, "header plus 20 ranks")
	assert.Equal(t, "Rank,WS_Ranking,Weight_Score,ZS_Ranking,Z-Score,ML_Ranking,Machine_Learning", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
	assert.True(t, strings.HasPrefix(lines[20], "20,"))

	metricsLines := strings.Split(strings.TrimSpace(readFile(t, filepath.Join(cfg.Output.Dir, MetricsCSVFile))), "\n")
	assert.Len(t, metricsLines, FixtureAccounts+1)

	report := readFile(t, filepath.Join(cfg.Output.Dir, ReportFile))
	assert.Contains(t, report, res.RunID)
	assert.Contains(t, report, fixedTime.Format(time.RFC3339))

	assert.Equal(t, FixtureAccounts, res.Report.DataSummary.Accounts)
	assert.Equal(t, FixtureAccounts, res.Report.DataSummary.Entries)
	assert.Positive(t, res.Report.DataSummary.ForwardFilled)
	assert.Len(t, res.Report.Suppression.Columns, 3)
	assert.Equal(t, 8, res.Report.Leaderboard.Diagnostics.TestSize)
	assert.Equal(t, 32, res.Report.Leaderboard.Diagnostics.TrainSize)

	m := p.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues(observability.StatusSuccess)))
	assert.Equal(t, float64(FixtureAccounts), testutil.ToFloat64(m.AccountsScored))
	assert.Equal(t, float64(res.Report.DataSummary.Trades), testutil.ToFloat64(m.TradesNormalized))

	prom := readFile(t, filepath.Join(cfg.Output.Dir, MetricsTextfile))
	assert.Contains(t, prom, `stage_duration_seconds_count{stage="rank"} 1`)
}

func TestPipeline_Deterministic(t *testing.T) {
	entries := FixtureEntries(FixtureAccounts)

	var outputs []string
	var runIDs []string
	for i := 0; i < 2; i++ {
		cfg := testConfig(t)
		res, err := newTestPipeline(cfg, entries).Run(context.Background())
		require.NoError(t, err)
		runIDs = append(runIDs, res.RunID)
		outputs = append(outputs,
			readFile(t, filepath.Join(cfg.Output.Dir, LeaderboardCSVFile))+
				readFile(t, filepath.Join(cfg.Output.Dir, MetricsCSVFile))+
				readFile(t, filepath.Join(cfg.Output.Dir, ReportFile)))
	}

	assert.Equal(t, runIDs[0], runIDs[1])
	assert.Equal(t, outputs[0], outputs[1])
}

func TestPipeline_RunIDTracksSettings(t *testing.T) {
	entries := FixtureEntries(10)
	runID := func(mutate func(*config.Config)) string {
		cfg := testConfig(t)
		mutate(cfg)
		require.NoError(t, cfg.Validate())
		res, err := newTestPipeline(cfg, entries).Run(context.Background())
		require.NoError(t, err)
		return res.RunID
	}

	base := runID(func(*config.Config) {})
	assert.Equal(t, base, runID(func(c *config.Config) { c.Ranking.Regression.Forest.Workers = 3 }))
	assert.NotEqual(t, base, runID(func(c *config.Config) {
		c.Ranking.Weights.ROI, c.Ranking.Weights.PnL = 0.3, 0.1
	}))
	assert.NotEqual(t, base, runID(func(c *config.Config) { c.Outlier.ZThreshold = 2 }))
	assert.NotEqual(t, base, runID(func(c *config.Config) { c.Ranking.TopN = 5 }))
}

func TestPipeline_FewAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Workbook = false
	cfg.Output.MetricsTextfile = false

	res, err := newTestPipeline(cfg, FixtureEntries(3)).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Report.Leaderboard.Comparison, 3)
	assert.Len(t, res.Files, 3)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, WorkbookFile))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, MetricsTextfile))
}

func TestPipeline_Mirror(t *testing.T) {
	entries := FixtureEntries(10)
	mirror := Mirror{
		Name:         "memory",
		Trades:       memory.NewTradeRecordStore(),
		Metrics:      memory.NewAccountMetricsStore(),
		Leaderboards: memory.NewLeaderboardStore(),
	}
	ctx := context.Background()

	res, err := newTestPipeline(testConfig(t), entries).WithMirror(mirror).Run(ctx)
	require.NoError(t, err)

	rows, err := mirror.Metrics.GetByRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	trades, err := mirror.Trades.GetByRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Report.DataSummary.Trades, len(trades))

	lb, err := mirror.Leaderboards.GetByRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Report.Leaderboard.Comparison, lb.Comparison)

	// Same input against the same mirror is skipped, not failed.
	again, err := newTestPipeline(testConfig(t), entries).WithMirror(mirror).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, again.RunID)
}

func TestPipeline_PartialMirror(t *testing.T) {
	mirror := Mirror{Name: "metrics-only", Metrics: memory.NewAccountMetricsStore()}
	res, err := newTestPipeline(testConfig(t), FixtureEntries(5)).WithMirror(mirror).Run(context.Background())
	require.NoError(t, err)

	rows, err := mirror.Metrics.GetByRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestPipeline_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("boom")
		p := New(testConfig(t), stub.NewFailingEntrySource(boom), nil)
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().PipelineRunsTotal.WithLabelValues(observability.StatusFailure)))
	})

	t.Run("missing account id", func(t *testing.T) {
		entries := FixtureEntries(3)
		entries[1].AccountID = ""
		_, err := newTestPipeline(testConfig(t), entries).Run(context.Background())
		assert.ErrorIs(t, err, normalization.ErrMissingAccountID)
	})

	t.Run("no trades", func(t *testing.T) {
		entries := []domain.RawAccountEntry{
			{AccountID: "1", TradeHistory: domain.TextHistory("[]")},
			{AccountID: "2", TradeHistory: domain.TextHistory("not a list")},
		}
		_, err := newTestPipeline(testConfig(t), entries).Run(context.Background())
		assert.ErrorIs(t, err, normalization.ErrNoTrades)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestPipeline(testConfig(t), FixtureEntries(3)).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFixtureEntries(t *testing.T) {
	a := FixtureEntries(5)
	b := FixtureEntries(5)
	assert.Equal(t, a, b)

	seen := map[string]bool{}
	for _, e := range a {
		assert.Equal(t, domain.HistoryText, e.TradeHistory.Kind)
		assert.Contains(t, e.TradeHistory.Text, "'activeBuy'")
		assert.False(t, seen[e.AccountID])
		seen[e.AccountID] = true
	}
	assert.Contains(t, a[0].TradeHistory.Text, "'price': None")
}
