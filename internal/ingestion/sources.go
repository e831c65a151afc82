// Package ingestion loads raw account entries from external sources.
package ingestion

import (
	"context"

	"trade-leaderboard/internal/domain"
)

// EntrySource provides raw account entries, one per source row.
type EntrySource interface {
	// Load returns all entries in source order. Trade histories are not
	// decoded; the normalizer owns that.
	Load(ctx context.Context) ([]domain.RawAccountEntry, error)
}
