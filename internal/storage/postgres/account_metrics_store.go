package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// AccountMetricsStore implements storage.AccountMetricsStore using PostgreSQL.
type AccountMetricsStore struct {
	pool *Pool
}

// NewAccountMetricsStore creates a new AccountMetricsStore.
func NewAccountMetricsStore(pool *Pool) *AccountMetricsStore {
	return &AccountMetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountMetricsStore = (*AccountMetricsStore)(nil)

var accountMetricsColumns = []string{
	"run_id", "account_id",
	"total_quantity", "pnl", "total_fee", "total_qty", "first_trade_time", "last_trade_time",
	"unique_assets", "total_positions", "trading_duration_hours", "avg_trades_per_hour",
	"roi", "mean_return", "std_dev_return", "sharpe_ratio",
	"cumulative_profit", "max_cumulative_profit", "drawdown", "max_drawdown_pct",
	"win_positions", "win_rate_pct", "total_buy_positions", "total_sell_positions", "net_positions",
	"roi_norm", "pnl_norm", "sharpe_norm", "win_rate_norm", "positions_norm", "net_positions_norm", "trade_weight_score",
	"roi_z", "pnl_z", "sharpe_z", "win_rate_z", "positions_z", "net_positions_z", "trade_z_score",
	"trade_ml_score",
}

const selectAccountMetrics = `
	SELECT
		run_id, account_id,
		total_quantity, pnl, total_fee, total_qty, first_trade_time, last_trade_time,
		unique_assets, total_positions, trading_duration_hours, avg_trades_per_hour,
		roi, mean_return, std_dev_return, sharpe_ratio,
		cumulative_profit, max_cumulative_profit, drawdown, max_drawdown_pct,
		win_positions, win_rate_pct, total_buy_positions, total_sell_positions, net_positions,
		roi_norm, pnl_norm, sharpe_norm, win_rate_norm, positions_norm, net_positions_norm, trade_weight_score,
		roi_z, pnl_z, sharpe_z, win_rate_z, positions_z, net_positions_z, trade_z_score,
		trade_ml_score
	FROM account_metrics
`

// InsertBulk copies the metrics table of a run in one transaction.
// Fails entire batch on any duplicate (run_id, account_id).
func (s *AccountMetricsStore) InsertBulk(ctx context.Context, runID string, rows []*domain.AccountMetrics) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}
	for _, m := range rows {
		if m == nil || m.AccountID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"account_metrics"}, accountMetricsColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return metricsValues(runID, rows[i]), nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy account metrics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves the metrics table of a run ordered by account_id ASC.
func (s *AccountMetricsStore) GetByRun(ctx context.Context, runID string) ([]*domain.AccountMetrics, error) {
	rows, err := s.pool.Query(ctx, selectAccountMetrics+`
		WHERE run_id = $1
		ORDER BY account_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get account metrics by run: %w", err)
	}
	defer rows.Close()

	result := []*domain.AccountMetrics{}
	for rows.Next() {
		m, err := scanAccountMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account metrics row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account metrics rows: %w", err)
	}
	return result, nil
}

// GetByAccount retrieves one row. Returns ErrNotFound if not exists.
func (s *AccountMetricsStore) GetByAccount(ctx context.Context, runID, accountID string) (*domain.AccountMetrics, error) {
	row := s.pool.QueryRow(ctx, selectAccountMetrics+`
		WHERE run_id = $1 AND account_id = $2
	`, runID, accountID)

	m, err := scanAccountMetrics(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account metrics: %w", err)
	}
	return m, nil
}

// metricsValues returns the row values in accountMetricsColumns order.
func metricsValues(runID string, m *domain.AccountMetrics) []any {
	return []any{
		runID, m.AccountID,
		m.TotalQuantity, m.PnL, m.TotalFee, m.TotalQty, m.FirstTradeTime, m.LastTradeTime,
		int32(m.UniqueAssets), int32(m.TotalPositions), m.TradingDurationHours, m.AvgTradesPerHour,
		m.ROI, m.MeanReturn, m.StdDevReturn, m.SharpeRatio,
		m.CumulativeProfit, m.MaxCumulativeProfit, m.Drawdown, m.MaxDrawdownPct,
		int32(m.WinPositions), m.WinRatePct, int32(m.TotalBuyPositions), int32(m.TotalSellPositions), int32(m.NetPositions),
		m.ROINorm, m.PnLNorm, m.SharpeNorm, m.WinRateNorm, m.PositionsNorm, m.NetPositionsNorm, m.TradeWeightScore,
		m.ROIZ, m.PnLZ, m.SharpeZ, m.WinRateZ, m.PositionsZ, m.NetPositionsZ, m.TradeZScore,
		m.TradeMLScore,
	}
}

// scanAccountMetrics scans a single row into an AccountMetrics.
func scanAccountMetrics(row pgx.Row) (*domain.AccountMetrics, error) {
	var (
		m     domain.AccountMetrics
		runID string
	)
	err := row.Scan(
		&runID, &m.AccountID,
		&m.TotalQuantity, &m.PnL, &m.TotalFee, &m.TotalQty, &m.FirstTradeTime, &m.LastTradeTime,
		&m.UniqueAssets, &m.TotalPositions, &m.TradingDurationHours, &m.AvgTradesPerHour,
		&m.ROI, &m.MeanReturn, &m.StdDevReturn, &m.SharpeRatio,
		&m.CumulativeProfit, &m.MaxCumulativeProfit, &m.Drawdown, &m.MaxDrawdownPct,
		&m.WinPositions, &m.WinRatePct, &m.TotalBuyPositions, &m.TotalSellPositions, &m.NetPositions,
		&m.ROINorm, &m.PnLNorm, &m.SharpeNorm, &m.WinRateNorm, &m.PositionsNorm, &m.NetPositionsNorm, &m.TradeWeightScore,
		&m.ROIZ, &m.PnLZ, &m.SharpeZ, &m.WinRateZ, &m.PositionsZ, &m.NetPositionsZ, &m.TradeZScore,
		&m.TradeMLScore,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
