package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const selectTradeRecords = `
	SELECT
		seq, trade_id, account_id, time_ms, symbol, side,
		price, quantity, qty, realized_profit, fee,
		fee_asset, quantity_asset, realized_profit_asset, base_asset, position_side, active_buy
	FROM trade_records
`

// InsertBulk adds the trades of a run atomically. Fails entire batch if the
// run already has trades or on any duplicate trade_id.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, runID string, trades []*domain.TradeRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trade_records WHERE run_id = $1)`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO trade_records (
			run_id, seq, trade_id, account_id, time_ms, symbol, side,
			price, quantity, qty, realized_profit, fee,
			fee_asset, quantity_asset, realized_profit_asset, base_asset, position_side, active_buy
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18
		)
	`

	batch := &pgx.Batch{}
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.AccountID == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(query,
			runID, t.Seq, t.TradeID, t.AccountID, t.Time, t.Symbol, string(t.Side),
			t.Price, t.Quantity, t.Qty, t.RealizedProfit, t.Fee,
			t.FeeAsset, t.QuantityAsset, t.RealizedProfitAsset, t.BaseAsset, t.PositionSide, t.ActiveBuy,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade records in bulk: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all trades of a run ordered by seq ASC.
func (s *TradeRecordStore) GetByRun(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, selectTradeRecords+`
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by run: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByAccount retrieves one account's trades of a run ordered by seq ASC.
func (s *TradeRecordStore) GetByAccount(ctx context.Context, runID, accountID string) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, selectTradeRecords+`
		WHERE run_id = $1 AND account_id = $2
		ORDER BY seq ASC
	`, runID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by account: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	trades := []*domain.TradeRecord{}

	for rows.Next() {
		var (
			t    domain.TradeRecord
			side string
		)
		err := rows.Scan(
			&t.Seq, &t.TradeID, &t.AccountID, &t.Time, &t.Symbol, &side,
			&t.Price, &t.Quantity, &t.Qty, &t.RealizedProfit, &t.Fee,
			&t.FeeAsset, &t.QuantityAsset, &t.RealizedProfitAsset, &t.BaseAsset, &t.PositionSide, &t.ActiveBuy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
