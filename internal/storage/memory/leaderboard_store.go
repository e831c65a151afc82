package memory

import (
	"context"
	"sort"
	"sync"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/ranking"
	"trade-leaderboard/internal/storage"
)

// LeaderboardStore is an in-memory implementation of storage.LeaderboardStore.
// Like the relational store it keeps only the comparison rows and diagnostics.
type LeaderboardStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Leaderboard // keyed by run_id
}

// NewLeaderboardStore creates a new in-memory leaderboard store.
func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		data: make(map[string]*domain.Leaderboard),
	}
}

// Insert adds a leaderboard. Returns ErrDuplicateKey if the run exists.
func (s *LeaderboardStore) Insert(_ context.Context, lb *domain.Leaderboard) error {
	if lb == nil || lb.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[lb.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[lb.RunID] = &domain.Leaderboard{
		RunID:       lb.RunID,
		Comparison:  append([]domain.ComparisonRow(nil), lb.Comparison...),
		Diagnostics: lb.Diagnostics,
	}
	return nil
}

// GetByRun retrieves a leaderboard. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByRun(_ context.Context, runID string) (*domain.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	lb := &domain.Leaderboard{
		RunID:       stored.RunID,
		Comparison:  append([]domain.ComparisonRow(nil), stored.Comparison...),
		Diagnostics: stored.Diagnostics,
	}
	lb.WeightScore, lb.ZScore, lb.ML = ranking.RankingsFromComparison(lb.Comparison)
	return lb, nil
}

// ListRuns returns all run ids in ascending order.
func (s *LeaderboardStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}

var _ storage.LeaderboardStore = (*LeaderboardStore)(nil)
