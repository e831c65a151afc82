package metrics

import (
	"math"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// DefaultPnLEpsilon replaces an exactly-zero PnL before it is used as a divisor.
const DefaultPnLEpsilon = 1e-6

// Engine derives the financial metrics from account aggregates.
type Engine struct {
	epsilon float64
	logger  *zap.Logger
}

// NewEngine creates a metrics engine. epsilon <= 0 selects DefaultPnLEpsilon.
func NewEngine(epsilon float64, logger *zap.Logger) *Engine {
	if epsilon <= 0 {
		epsilon = DefaultPnLEpsilon
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{epsilon: epsilon, logger: logger}
}

// Summary carries the run-scoped scalars and guard counts of one computation.
type Summary struct {
	StdDevReturn       float64 // sample std of Mean_Return across accounts
	ZeroPnLAccounts    int     // PnL replaced by epsilon
	ZeroQuantityGuards int     // Mean_Return forced to 0
	ZeroPeakGuards     int     // Max_Drawdown_pct forced to 0
}

// Compute derives one AccountMetrics row per aggregate.
// Aggregates must be ordered by account_id ASC; that order defines the
// running Cumulative_Profit and Max_Cumulative_Profit columns.
func (e *Engine) Compute(aggs []*AccountAggregate) ([]*domain.AccountMetrics, *Summary) {
	summary := &Summary{}
	rows := make([]*domain.AccountMetrics, len(aggs))

	// Per-row fields that do not depend on other accounts.
	meanReturns := make([]float64, len(aggs))
	for i, a := range aggs {
		pnl := a.RealizedProfit
		if pnl == 0 {
			pnl = e.epsilon
			summary.ZeroPnLAccounts++
		}

		m := &domain.AccountMetrics{
			AccountID:            a.AccountID,
			TotalQuantity:        a.TotalQuantity,
			PnL:                  pnl,
			TotalFee:             a.TotalFee,
			TotalQty:             a.TotalQty,
			FirstTradeTime:       a.FirstTradeTime,
			LastTradeTime:        a.LastTradeTime,
			UniqueAssets:         a.UniqueAssets,
			TotalPositions:       a.TotalPositions,
			TradingDurationHours: a.TradingDurationHours,
			AvgTradesPerHour:     a.AvgTradesPerHour,
			ROI:                  a.TotalQuantity / pnl * 100,
			WinPositions:         a.WinPositions,
			WinRatePct:           computeWinRatePct(a.WinPositions, a.TotalPositions),
			TotalBuyPositions:    a.BuyPositions,
			TotalSellPositions:   a.SellPositions,
			NetPositions:         a.BuyPositions - a.SellPositions,
		}

		if a.TotalQuantity == 0 {
			summary.ZeroQuantityGuards++
		} else {
			m.MeanReturn = pnl / a.TotalQuantity
		}
		meanReturns[i] = m.MeanReturn
		rows[i] = m
	}

	// One scalar for the whole population, handed to every row.
	summary.StdDevReturn = stats.Finite(stats.SampleStddev(meanReturns))
	applySharpe(rows, summary.StdDevReturn)

	summary.ZeroPeakGuards = applyDrawdown(rows)

	e.logger.Info("computed account metrics",
		zap.Int("accounts", len(rows)),
		zap.Float64("std_dev_return", summary.StdDevReturn),
		zap.Int("zero_pnl_accounts", summary.ZeroPnLAccounts),
		zap.Int("zero_quantity_guards", summary.ZeroQuantityGuards),
		zap.Int("zero_peak_guards", summary.ZeroPeakGuards),
	)

	return rows, summary
}

// applySharpe sets Std_Dev_Return and Sharpe_Ratio (risk-free rate 0).
func applySharpe(rows []*domain.AccountMetrics, stdDevReturn float64) {
	for _, m := range rows {
		m.StdDevReturn = stdDevReturn
		if stdDevReturn != 0 {
			m.SharpeRatio = m.MeanReturn / stdDevReturn
		}
	}
}

// applyDrawdown fills the running profit columns in row order.
// Returns how many rows had a zero peak.
func applyDrawdown(rows []*domain.AccountMetrics) int {
	guards := 0
	cumulative := 0.0
	peak := math.Inf(-1)
	for _, m := range rows {
		cumulative += m.PnL
		if cumulative > peak {
			peak = cumulative
		}
		m.CumulativeProfit = cumulative
		m.MaxCumulativeProfit = peak
		m.Drawdown = peak - cumulative
		if peak == 0 {
			guards++
			continue
		}
		m.MaxDrawdownPct = m.Drawdown / peak * 100
	}
	return guards
}

// computeWinRatePct calculates win rate as wins / total * 100.
func computeWinRatePct(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}
