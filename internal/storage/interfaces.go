package storage

import (
	"context"

	"trade-leaderboard/internal/domain"
)

// TradeRecordStore provides access to normalized trade_records, scoped by run.
type TradeRecordStore interface {
	// InsertBulk adds the trades of a run atomically. Returns ErrDuplicateKey if
	// the run already has trades or the batch repeats a trade_id.
	InsertBulk(ctx context.Context, runID string, trades []*domain.TradeRecord) error

	// GetByRun retrieves all trades of a run in table order (seq ASC).
	GetByRun(ctx context.Context, runID string) ([]*domain.TradeRecord, error)

	// GetByAccount retrieves one account's trades of a run, ordered by seq ASC.
	GetByAccount(ctx context.Context, runID, accountID string) ([]*domain.TradeRecord, error)
}

// AccountMetricsStore provides access to account_metrics storage.
type AccountMetricsStore interface {
	// InsertBulk adds the metrics table of a run atomically.
	// Returns ErrDuplicateKey if any (run_id, account_id) exists.
	InsertBulk(ctx context.Context, runID string, rows []*domain.AccountMetrics) error

	// GetByRun retrieves the metrics table of a run, ordered by account_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.AccountMetrics, error)

	// GetByAccount retrieves one row. Returns ErrNotFound if not exists.
	GetByAccount(ctx context.Context, runID, accountID string) (*domain.AccountMetrics, error)
}

// LeaderboardStore provides access to leaderboard_runs and leaderboard_rows storage.
type LeaderboardStore interface {
	// Insert adds a run's comparison table and diagnostics.
	// Returns ErrDuplicateKey if the run exists, ErrInvalidInput without run id.
	Insert(ctx context.Context, lb *domain.Leaderboard) error

	// GetByRun retrieves a leaderboard. Returns ErrNotFound if not exists.
	// Rankings are rebuilt from the comparison rows.
	GetByRun(ctx context.Context, runID string) (*domain.Leaderboard, error)

	// ListRuns returns all stored run ids in ascending order.
	ListRuns(ctx context.Context) ([]string, error)
}
