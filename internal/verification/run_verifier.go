package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/metrics"
	"trade-leaderboard/internal/ranking"
	"trade-leaderboard/internal/storage"
)

// ErrRunNotFound is returned when a run has no stored trades or results.
var ErrRunNotFound = errors.New("run not found")

// RunVerifier recomputes a run from its stored post-suppression trades.
type RunVerifier struct {
	tradeStore       storage.TradeRecordStore
	metricsStore     storage.AccountMetricsStore
	leaderboardStore storage.LeaderboardStore

	metricsEngine *metrics.Engine
	rankingEngine *ranking.Engine
	logger        *zap.Logger
}

// RunVerifierOptions contains configuration for creating a RunVerifier.
// The parameters must be the ones the run was produced with.
type RunVerifierOptions struct {
	TradeStore       storage.TradeRecordStore
	MetricsStore     storage.AccountMetricsStore
	LeaderboardStore storage.LeaderboardStore
	PnLEpsilon       float64
	Ranking          ranking.Params
	Logger           *zap.Logger
}

// NewRunVerifier creates a new RunVerifier.
func NewRunVerifier(opts RunVerifierOptions) *RunVerifier {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunVerifier{
		tradeStore:       opts.TradeStore,
		metricsStore:     opts.MetricsStore,
		leaderboardStore: opts.LeaderboardStore,
		metricsEngine:    metrics.NewEngine(opts.PnLEpsilon, zap.NewNop()),
		rankingEngine:    ranking.NewEngine(opts.Ranking, zap.NewNop()),
		logger:           logger,
	}
}

// Verify recomputes runID and compares it with the stored results.
func (v *RunVerifier) Verify(ctx context.Context, runID string) (*Report, error) {
	aggs, err := metrics.NewAggregator(zap.NewNop()).AggregateStored(ctx, v.tradeStore, runID)
	if err != nil {
		if errors.Is(err, metrics.ErrNoTrades) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	recomputed, _ := v.metricsEngine.Compute(aggs)
	lb, err := v.rankingEngine.Rank(ctx, runID, recomputed)
	if err != nil {
		return nil, fmt.Errorf("recompute ranking: %w", err)
	}

	stored, err := v.metricsStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	storedLB, err := v.leaderboardStore.GetByRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	report := compareRuns(runID, stored, recomputed)
	report.Leaderboard = CompareLeaderboards(storedLB, lb)

	v.logger.Info("run verified",
		zap.String("run_id", runID),
		zap.Bool("match", report.Match()),
		zap.Int("accounts", report.TotalAccounts),
		zap.Int("divergent_accounts", report.DivergentAccounts),
		zap.Int("leaderboard_divergences", len(report.Leaderboard)),
	)
	return report, nil
}

func compareRuns(runID string, stored, recomputed []*domain.AccountMetrics) *Report {
	byID := make(map[string]*domain.AccountMetrics, len(stored))
	for _, m := range stored {
		byID[m.AccountID] = m
	}

	report := &Report{RunID: runID}
	for _, r := range recomputed {
		s, ok := byID[r.AccountID]
		if !ok {
			report.MissingAccounts = append(report.MissingAccounts, r.AccountID)
			continue
		}
		delete(byID, r.AccountID)

		divergences := CompareAccountMetrics(s, r)
		report.TotalAccounts++
		if len(divergences) == 0 {
			report.MatchedAccounts++
		} else {
			report.DivergentAccounts++
		}
		report.Accounts = append(report.Accounts, AccountResult{
			AccountID:   r.AccountID,
			Match:       len(divergences) == 0,
			Divergences: divergences,
		})
	}

	for id := range byID {
		report.UnexpectedAccounts = append(report.UnexpectedAccounts, id)
	}
	sort.Strings(report.UnexpectedAccounts)

	return report
}
