package reporting

import (
	"context"
	"fmt"
	"time"

	"trade-leaderboard/internal/storage"
)

// Generator produces reports from stored run data.
type Generator struct {
	metricsStore     storage.AccountMetricsStore
	leaderboardStore storage.LeaderboardStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(metricsStore storage.AccountMetricsStore, leaderboardStore storage.LeaderboardStore) *Generator {
	return &Generator{
		metricsStore:     metricsStore,
		leaderboardStore: leaderboardStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads the metrics table and leaderboard of runID and combines
// them with the run information into a report.
func (g *Generator) Generate(ctx context.Context, runID string, info RunInfo) (*Report, error) {
	rows, err := g.metricsStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load metrics for run %s: %w", runID, err)
	}

	lb, err := g.leaderboardStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard for run %s: %w", runID, err)
	}

	summary := info.DataSummary
	summary.Accounts = len(rows)
	for i, m := range rows {
		if i == 0 || m.FirstTradeTime < summary.DateRangeStart {
			summary.DateRangeStart = m.FirstTradeTime
		}
		if i == 0 || m.LastTradeTime > summary.DateRangeEnd {
			summary.DateRangeEnd = m.LastTradeTime
		}
	}

	return &Report{
		RunID:          runID,
		GeneratedAt:    g.now(),
		DataSummary:    summary,
		DataQuality:    info.DataQuality,
		Suppression:    info.Suppression,
		Metrics:        rows,
		MetricsSummary: info.MetricsSummary,
		Leaderboard:    lb,
	}, nil
}
