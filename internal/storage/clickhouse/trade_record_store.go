package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using ClickHouse.
type TradeRecordStore struct {
	conn *Conn
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(conn *Conn) *TradeRecordStore {
	return &TradeRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	run_id, seq, trade_id, account_id, time_ms, symbol, side,
	price, quantity, qty, realized_profit, fee,
	fee_asset, quantity_asset, realized_profit_asset, base_asset, position_side, active_buy`

// InsertBulk adds the trades of a run in one batch. MergeTree does not
// enforce keys, so an existing run and intra-batch trade_id repeats are
// checked before sending.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, runID string, trades []*domain.TradeRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.AccountID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.TradeID] = struct{}{}
	}

	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO trade_records ("+tradeRecordColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			runID, uint64(t.Seq), t.TradeID, t.AccountID, t.Time, t.Symbol, string(t.Side),
			t.Price, t.Quantity, t.Qty, t.RealizedProfit, t.Fee,
			t.FeeAsset, t.QuantityAsset, t.RealizedProfitAsset, t.BaseAsset, t.PositionSide, t.ActiveBuy,
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

// GetByRun retrieves all trades of a run ordered by seq ASC.
func (s *TradeRecordStore) GetByRun(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	rows, err := s.conn.Query(ctx, "SELECT "+tradeRecordColumns+`
		FROM trade_records
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByAccount retrieves one account's trades of a run ordered by seq ASC.
func (s *TradeRecordStore) GetByAccount(ctx context.Context, runID, accountID string) ([]*domain.TradeRecord, error) {
	rows, err := s.conn.Query(ctx, "SELECT "+tradeRecordColumns+`
		FROM trade_records
		WHERE run_id = ? AND account_id = ?
		ORDER BY seq ASC`, runID, accountID)
	if err != nil {
		return nil, fmt.Errorf("query trade records by account: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

func (s *TradeRecordStore) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, "SELECT count() FROM trade_records WHERE run_id = ?", runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTradeRecords(rows driver.Rows) ([]*domain.TradeRecord, error) {
	result := []*domain.TradeRecord{}
	for rows.Next() {
		var (
			t     domain.TradeRecord
			runID string
			seq   uint64
			side  string
		)
		err := rows.Scan(
			&runID, &seq, &t.TradeID, &t.AccountID, &t.Time, &t.Symbol, &side,
			&t.Price, &t.Quantity, &t.Qty, &t.RealizedProfit, &t.Fee,
			&t.FeeAsset, &t.QuantityAsset, &t.RealizedProfitAsset, &t.BaseAsset, &t.PositionSide, &t.ActiveBuy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		t.Seq = int(seq)
		t.Side = domain.Side(side)
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}
	return result, nil
}
