package normalization

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
)

// Fatal normalization errors. Anything else is logged and absorbed per entry.
var (
	// ErrMissingAccountID is returned when a source entry has no account id.
	ErrMissingAccountID = errors.New("raw entry missing account_id")

	// ErrNoTrades is returned when no entry yields a trade.
	ErrNoTrades = errors.New("no trades after normalization")
)

// NormalizationEngine defines the main normalization interface.
type NormalizationEngine interface {
	// Normalize explodes raw account entries into a flat trade table.
	Normalize(ctx context.Context, entries []domain.RawAccountEntry) ([]*domain.TradeRecord, *Stats, error)
}

// Stats counts what happened to the input entries.
type Stats struct {
	Entries         int
	ParseFailures   int
	UnknownPayloads int
	EmptyHistories  int
	Trades          int
	ForwardFilled   int // individual field values taken from a previous row
}

// Normalizer implements NormalizationEngine.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new normalizer. A nil logger disables logging.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize parses every entry's trade history, explodes it into one record per
// trade and forward-fills missing fields down the resulting table.
// Parse failures are isolated to their entry. A missing account id or an empty
// result aborts the run.
func (n *Normalizer) Normalize(ctx context.Context, entries []domain.RawAccountEntry) ([]*domain.TradeRecord, *Stats, error) {
	stats := &Stats{Entries: len(entries)}

	var rows []explodedRow
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if entry.AccountID == "" {
			n.logger.Error("raw entry without account id", zap.Int("entry_index", i))
			return nil, stats, ErrMissingAccountID
		}

		items, err := n.ParseHistory(entry.AccountID, entry.TradeHistory)
		switch {
		case errors.Is(err, ErrUnknownPayload):
			stats.UnknownPayloads++
			continue
		case err != nil:
			stats.ParseFailures++
			continue
		}
		if len(items) == 0 {
			stats.EmptyHistories++
			continue
		}

		for _, item := range items {
			rows = append(rows, explodedRow{accountID: entry.AccountID, raw: item})
		}
	}

	if len(rows) == 0 {
		return nil, stats, ErrNoTrades
	}

	trades, filled := forwardFill(rows)
	stats.Trades = len(trades)
	stats.ForwardFilled = filled

	n.logger.Info("normalized trade history",
		zap.Int("entries", stats.Entries),
		zap.Int("trades", stats.Trades),
		zap.Int("parse_failures", stats.ParseFailures),
		zap.Int("unknown_payloads", stats.UnknownPayloads),
		zap.Int("forward_filled", stats.ForwardFilled),
	)

	return trades, stats, nil
}

// Canonicalize returns the entry with its history decoded into the structured
// variant. Normalizing the result yields the same trades as normalizing the
// original entry.
func (n *Normalizer) Canonicalize(entry domain.RawAccountEntry) domain.RawAccountEntry {
	items, err := n.ParseHistory(entry.AccountID, entry.TradeHistory)
	if err != nil {
		items = nil
	}
	return domain.RawAccountEntry{
		AccountID:    entry.AccountID,
		TradeHistory: domain.StructuredHistory(items),
	}
}

var _ NormalizationEngine = (*Normalizer)(nil)
