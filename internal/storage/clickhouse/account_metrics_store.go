package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// AccountMetricsStore implements storage.AccountMetricsStore using ClickHouse.
type AccountMetricsStore struct {
	conn *Conn
}

// NewAccountMetricsStore creates a new AccountMetricsStore.
func NewAccountMetricsStore(conn *Conn) *AccountMetricsStore {
	return &AccountMetricsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AccountMetricsStore = (*AccountMetricsStore)(nil)

const accountMetricsColumns = `
	run_id, account_id,
	total_quantity, pnl, total_fee, total_qty, first_trade_time, last_trade_time,
	unique_assets, total_positions, trading_duration_hours, avg_trades_per_hour,
	roi, mean_return, std_dev_return, sharpe_ratio,
	cumulative_profit, max_cumulative_profit, drawdown, max_drawdown_pct,
	win_positions, win_rate_pct, total_buy_positions, total_sell_positions, net_positions,
	roi_norm, pnl_norm, sharpe_norm, win_rate_norm, positions_norm, net_positions_norm, trade_weight_score,
	roi_z, pnl_z, sharpe_z, win_rate_z, positions_z, net_positions_z, trade_z_score,
	trade_ml_score`

// InsertBulk adds the metrics table of a run. Fails entire batch on any duplicate.
func (s *AccountMetricsStore) InsertBulk(ctx context.Context, runID string, rows []*domain.AccountMetrics) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		if m == nil || m.AccountID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[m.AccountID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[m.AccountID] = struct{}{}
	}

	// ReplacingMergeTree would collapse re-inserts; keep append-only semantics.
	for _, m := range rows {
		exists, err := s.exists(ctx, runID, m.AccountID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO account_metrics ("+accountMetricsColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range rows {
		err = batch.Append(
			runID, m.AccountID,
			m.TotalQuantity, m.PnL, m.TotalFee, m.TotalQty, m.FirstTradeTime, m.LastTradeTime,
			int64(m.UniqueAssets), int64(m.TotalPositions), m.TradingDurationHours, m.AvgTradesPerHour,
			m.ROI, m.MeanReturn, m.StdDevReturn, m.SharpeRatio,
			m.CumulativeProfit, m.MaxCumulativeProfit, m.Drawdown, m.MaxDrawdownPct,
			int64(m.WinPositions), m.WinRatePct, int64(m.TotalBuyPositions), int64(m.TotalSellPositions), int64(m.NetPositions),
			m.ROINorm, m.PnLNorm, m.SharpeNorm, m.WinRateNorm, m.PositionsNorm, m.NetPositionsNorm, m.TradeWeightScore,
			m.ROIZ, m.PnLZ, m.SharpeZ, m.WinRateZ, m.PositionsZ, m.NetPositionsZ, m.TradeZScore,
			m.TradeMLScore,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves the metrics table of a run ordered by account_id ASC.
func (s *AccountMetricsStore) GetByRun(ctx context.Context, runID string) ([]*domain.AccountMetrics, error) {
	rows, err := s.conn.Query(ctx, "SELECT "+accountMetricsColumns+`
		FROM account_metrics FINAL
		WHERE run_id = ?
		ORDER BY account_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query account metrics: %w", err)
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
	row := s.conn.QueryRow(ctx, "SELECT "+accountMetricsColumns+`
		FROM account_metrics FINAL
		WHERE run_id = ? AND account_id = ?
		LIMIT 1`, runID, accountID)

	m, err := scanAccountMetrics(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account metrics: %w", err)
	}
	return m, nil
}

func (s *AccountMetricsStore) exists(ctx context.Context, runID, accountID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, "SELECT count() FROM account_metrics WHERE run_id = ? AND account_id = ?", runID, accountID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanner is satisfied by both driver.Row and driver.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccountMetrics(row scanner) (*domain.AccountMetrics, error) {
	var (
		m                                          domain.AccountMetrics
		runID                                      string
		uniqueAssets, totalPositions, winPositions int64
		buyPositions, sellPositions, netPositions  int64
	)
	err := row.Scan(
		&runID, &m.AccountID,
		&m.TotalQuantity, &m.PnL, &m.TotalFee, &m.TotalQty, &m.FirstTradeTime, &m.LastTradeTime,
		&uniqueAssets, &totalPositions, &m.TradingDurationHours, &m.AvgTradesPerHour,
		&m.ROI, &m.MeanReturn, &m.StdDevReturn, &m.SharpeRatio,
		&m.CumulativeProfit, &m.MaxCumulativeProfit, &m.Drawdown, &m.MaxDrawdownPct,
		&winPositions, &m.WinRatePct, &buyPositions, &sellPositions, &netPositions,
		&m.ROINorm, &m.PnLNorm, &m.SharpeNorm, &m.WinRateNorm, &m.PositionsNorm, &m.NetPositionsNorm, &m.TradeWeightScore,
		&m.ROIZ, &m.PnLZ, &m.SharpeZ, &m.WinRateZ, &m.PositionsZ, &m.NetPositionsZ, &m.TradeZScore,
		&m.TradeMLScore,
	)
	if err != nil {
		return nil, err
	}

	m.UniqueAssets = int(uniqueAssets)
	m.TotalPositions = int(totalPositions)
	m.WinPositions = int(winPositions)
	m.TotalBuyPositions = int(buyPositions)
	m.TotalSellPositions = int(sellPositions)
	m.NetPositions = int(netPositions)
	return &m, nil
}
