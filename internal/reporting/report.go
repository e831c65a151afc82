package reporting

import (
	"time"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// Report represents one leaderboard run.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time

	// Input description
	DataSummary DataSummary

	// Non-fatal conditions found while running
	DataQuality []string

	// Outlier suppression outcome
	Suppression SuppressionSection

	// Metrics table (ordered by account_id) and its run-scoped scalars
	Metrics        []*domain.AccountMetrics
	MetricsSummary MetricsSummary

	// Rankings, comparison table and fit diagnostics
	Leaderboard *domain.Leaderboard
}

// DataSummary describes the input and the normalized trade table.
type DataSummary struct {
	Entries         int
	ParseFailures   int
	UnknownPayloads int
	EmptyHistories  int
	Trades          int
	ForwardFilled   int
	Accounts        int
	DateRangeStart  int64 // Unix ms
	DateRangeEnd    int64 // Unix ms
}

// SuppressionSection reports percentile bounds, medians and distribution
// changes per suppressed column.
type SuppressionSection struct {
	Columns      []SuppressionColumn
	CappedValues int
	ReplacedRows int
}

// SuppressionColumn is one suppressed column.
type SuppressionColumn struct {
	Name   string
	Lower  float64
	Upper  float64
	Median float64
	Before stats.Summary
	After  stats.Summary
}

// MetricsSummary carries the metrics engine scalars and guard counts.
type MetricsSummary struct {
	StdDevReturn       float64
	ZeroPnLAccounts    int
	ZeroQuantityGuards int
	ZeroPeakGuards     int
}

// RunInfo is what the pipeline knows about a run beyond the stored tables.
type RunInfo struct {
	DataSummary    DataSummary
	DataQuality    []string
	Suppression    SuppressionSection
	MetricsSummary MetricsSummary
}
