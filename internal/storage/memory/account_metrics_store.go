package memory

import (
	"context"
	"sort"
	"sync"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// AccountMetricsStore is an in-memory implementation of storage.AccountMetricsStore.
type AccountMetricsStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.AccountMetrics // run_id -> account_id -> row
}

// NewAccountMetricsStore creates a new in-memory account metrics store.
func NewAccountMetricsStore() *AccountMetricsStore {
	return &AccountMetricsStore{
		data: make(map[string]map[string]*domain.AccountMetrics),
	}
}

// InsertBulk adds the rows of a run atomically. Fails entire batch on any duplicate.
func (s *AccountMetricsStore) InsertBulk(_ context.Context, runID string, rows []*domain.AccountMetrics) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]
	batchKeys := make(map[string]struct{}, len(rows))

	// First pass: check for duplicates (existing + intra-batch)
	for _, m := range rows {
		if m == nil || m.AccountID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[m.AccountID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[m.AccountID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[m.AccountID] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[string]*domain.AccountMetrics, len(rows))
		s.data[runID] = existing
	}
	for _, m := range rows {
		rowCopy := *m
		existing[m.AccountID] = &rowCopy
	}
	return nil
}

// GetByRun retrieves the metrics table of a run ordered by account_id ASC.
func (s *AccountMetricsStore) GetByRun(_ context.Context, runID string) ([]*domain.AccountMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AccountMetrics, 0, len(s.data[runID]))
	for _, m := range s.data[runID] {
		rowCopy := *m
		result = append(result, &rowCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountID < result[j].AccountID
	})
	return result, nil
}

// GetByAccount retrieves one row. Returns ErrNotFound if not exists.
func (s *AccountMetricsStore) GetByAccount(_ context.Context, runID, accountID string) (*domain.AccountMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[runID][accountID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rowCopy := *m
	return &rowCopy, nil
}

var _ storage.AccountMetricsStore = (*AccountMetricsStore)(nil)
