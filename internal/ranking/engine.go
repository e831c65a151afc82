package ranking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
)

// ErrNoAccounts is returned when ranking an empty metrics table.
var ErrNoAccounts = errors.New("no accounts to rank")

// Params configures the ranking engine.
type Params struct {
	TopN       int              `yaml:"top_n"`
	Weights    Weights          `yaml:"weights"`
	Regression RegressionParams `yaml:"regression"`
}

// DefaultParams returns top 20 with the default weights and forest.
func DefaultParams() Params {
	return Params{
		TopN:       DefaultTopN,
		Weights:    DefaultWeights(),
		Regression: DefaultRegressionParams(),
	}
}

// Engine runs the three ranking methods over one metrics table.
type Engine struct {
	params Params
	logger *zap.Logger
}

// NewEngine creates a ranking engine. A nil logger disables logging.
func NewEngine(params Params, logger *zap.Logger) *Engine {
	if params.TopN <= 0 {
		params.TopN = DefaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{params: params, logger: logger}
}

// Rank fills the score columns of rows and returns the three top-N lists
// with their comparison table. The regression method reads the weighted and
// standardized columns, so the methods run in that order.
func (e *Engine) Rank(ctx context.Context, runID string, rows []*domain.AccountMetrics) (*domain.Leaderboard, error) {
	if len(rows) == 0 {
		return nil, ErrNoAccounts
	}
	if err := e.params.Weights.Validate(); err != nil {
		return nil, err
	}

	ApplyWeightScore(rows, e.params.Weights)
	ApplyZScore(rows, e.params.Weights)

	diag, err := ApplyMLScore(ctx, rows, e.params.Regression)
	if err != nil {
		return nil, fmt.Errorf("rank accounts: %w", err)
	}

	lb := &domain.Leaderboard{
		RunID:       runID,
		WeightScore: TopN(rows, func(m *domain.AccountMetrics) float64 { return m.TradeWeightScore }, e.params.TopN),
		ZScore:      TopN(rows, func(m *domain.AccountMetrics) float64 { return m.TradeZScore }, e.params.TopN),
		ML:          TopN(rows, func(m *domain.AccountMetrics) float64 { return m.TradeMLScore }, e.params.TopN),
		Diagnostics: diag,
	}
	lb.Comparison = BuildComparison(lb.WeightScore, lb.ZScore, lb.ML)

	e.logger.Info("ranked accounts",
		zap.String("run_id", runID),
		zap.Int("accounts", len(rows)),
		zap.Int("top_n", len(lb.Comparison)),
		zap.Float64("r2", diag.R2),
		zap.Float64("mae", diag.MAE),
		zap.Int("train_size", diag.TrainSize),
		zap.Int("test_size", diag.TestSize),
	)
	return lb, nil
}
