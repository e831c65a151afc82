package memory

import (
	"context"
	"sort"
	"sync"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TradeRecord // keyed by run_id
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		data: make(map[string][]*domain.TradeRecord),
	}
}

// InsertBulk adds the trades of a run atomically. Fails entire batch if the
// run already exists or the batch repeats a trade_id.
func (s *TradeRecordStore) InsertBulk(_ context.Context, runID string, trades []*domain.TradeRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.AccountID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	stored := make([]*domain.TradeRecord, len(trades))
	for i, t := range trades {
		tradeCopy := *t
		stored[i] = &tradeCopy
	}
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Seq < stored[j].Seq
	})
	s.data[runID] = stored
	return nil
}

// GetByRun retrieves all trades of a run ordered by seq ASC.
// An unknown run yields an empty slice.
func (s *TradeRecordStore) GetByRun(_ context.Context, runID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyTrades(s.data[runID], func(*domain.TradeRecord) bool { return true }), nil
}

// GetByAccount retrieves one account's trades of a run ordered by seq ASC.
func (s *TradeRecordStore) GetByAccount(_ context.Context, runID, accountID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyTrades(s.data[runID], func(t *domain.TradeRecord) bool { return t.AccountID == accountID }), nil
}

func copyTrades(src []*domain.TradeRecord, keep func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	result := make([]*domain.TradeRecord, 0, len(src))
	for _, t := range src {
		if keep(t) {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}
	return result
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)
