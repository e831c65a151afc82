package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
)

// Source column names.
const (
	ColumnAccountID    = "Port_IDs"
	ColumnTradeHistory = "Trade_History"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// CSVSource reads entries from a CSV file with Port_IDs and Trade_History
// columns. Other columns are ignored.
type CSVSource struct {
	path   string
	logger *zap.Logger
}

var _ EntrySource = (*CSVSource)(nil)

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{path: path, logger: logger}
}

// Load opens the file and reads every row.
func (s *CSVSource) Load(ctx context.Context) ([]domain.RawAccountEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	entries, err := ReadEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	s.logger.Info("input loaded",
		zap.String("path", s.path),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// ReadEntries parses CSV rows from r. A blank Trade_History cell yields an
// entry of unknown payload kind, which normalizes to zero trades.
func ReadEntries(ctx context.Context, r io.Reader) ([]domain.RawAccountEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, histCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnAccountID:
			idCol = i
		case ColumnTradeHistory:
			histCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnAccountID)
	}
	if histCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnTradeHistory)
	}

	var entries []domain.RawAccountEntry
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		entry := domain.RawAccountEntry{AccountID: strings.TrimSpace(cell(record, idCol))}
		if text := cell(record, histCol); strings.TrimSpace(text) != "" {
			entry.TradeHistory = domain.TextHistory(text)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
