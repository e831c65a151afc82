package postgres

import (
	"context"
	"fmt"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/ranking"
	"trade-leaderboard/internal/storage"
)

// LeaderboardStore implements storage.LeaderboardStore using PostgreSQL.
type LeaderboardStore struct {
	pool *Pool
}

// NewLeaderboardStore creates a new LeaderboardStore.
func NewLeaderboardStore(pool *Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LeaderboardStore = (*LeaderboardStore)(nil)

// Insert adds a run and its comparison rows atomically.
// Returns ErrDuplicateKey if the run exists.
func (s *LeaderboardStore) Insert(ctx context.Context, lb *domain.Leaderboard) error {
	if lb == nil || lb.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	d := lb.Diagnostics
	_, err = tx.Exec(ctx, `
		INSERT INTO leaderboard_runs (run_id, r2, mae, train_size, test_size)
		VALUES ($1, $2, $3, $4, $5)
	`, lb.RunID, d.R2, d.MAE, d.TrainSize, d.TestSize)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert leaderboard run: %w", err)
	}

	query := `
		INSERT INTO leaderboard_rows (
			run_id, rank,
			ws_account_id, weight_score,
			zs_account_id, z_score,
			ml_account_id, ml_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, r := range lb.Comparison {
		_, err := tx.Exec(ctx, query,
			lb.RunID, r.Rank,
			r.WSAccountID, r.WeightScore,
			r.ZSAccountID, r.ZScore,
			r.MLAccountID, r.MLScore,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert leaderboard row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves a leaderboard. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByRun(ctx context.Context, runID string) (*domain.Leaderboard, error) {
	lb := &domain.Leaderboard{RunID: runID}
	d := &lb.Diagnostics

	err := s.pool.QueryRow(ctx, `
		SELECT r2, mae, train_size, test_size
		FROM leaderboard_runs
		WHERE run_id = $1
	`, runID).Scan(&d.R2, &d.MAE, &d.TrainSize, &d.TestSize)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get leaderboard run: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT rank, ws_account_id, weight_score, zs_account_id, z_score, ml_account_id, ml_score
		FROM leaderboard_rows
		WHERE run_id = $1
		ORDER BY rank ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.ComparisonRow
		if err := rows.Scan(&r.Rank, &r.WSAccountID, &r.WeightScore, &r.ZSAccountID, &r.ZScore, &r.MLAccountID, &r.MLScore); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		lb.Comparison = append(lb.Comparison, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}

	lb.WeightScore, lb.ZScore, lb.ML = ranking.RankingsFromComparison(lb.Comparison)
	return lb, nil
}

// ListRuns returns all run ids in ascending order.
func (s *LeaderboardStore) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT run_id FROM leaderboard_runs ORDER BY run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return runs, nil
}
