package stub

import (
	"context"

	"trade-leaderboard/internal/domain"
)

// StubEntrySource returns fixed in-memory entries for testing.
// Implements ingestion.EntrySource interface.
type StubEntrySource struct {
	entries []domain.RawAccountEntry
	err     error
}

// NewStubEntrySource creates a new stub source with the given entries.
func NewStubEntrySource(entries []domain.RawAccountEntry) *StubEntrySource {
	return &StubEntrySource{entries: entries}
}

// NewFailingEntrySource creates a stub source whose Load always fails with err.
func NewFailingEntrySource(err error) *StubEntrySource {
	return &StubEntrySource{err: err}
}

// Load returns a copy of the configured entries.
func (s *StubEntrySource) Load(ctx context.Context) ([]domain.RawAccountEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.RawAccountEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
