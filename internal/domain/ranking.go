package domain

// Ranking method identifiers.
const (
	MethodWeightScore = "WEIGHT_SCORE"
	MethodZScore      = "Z_SCORE"
	MethodML          = "MACHINE_LEARNING"
)

// RankedEntry is one position of a leaderboard produced by a single method.
type RankedEntry struct {
	AccountID string
	Score     float64
}

// ComparisonRow is one rank of the merged comparison table. Methods are
// independent: the three account IDs at a rank need not match.
type ComparisonRow struct {
	Rank        int
	WSAccountID string
	WeightScore float64
	ZSAccountID string
	ZScore      float64
	MLAccountID string
	MLScore     float64
}

// FitDiagnostics reports regression quality on the held-out split.
// Diagnostic only; never used to gate the run.
type FitDiagnostics struct {
	R2        float64
	MAE       float64
	TrainSize int
	TestSize  int
}

// Leaderboard holds the three rankings of one run and their merged view.
type Leaderboard struct {
	RunID       string
	WeightScore []RankedEntry
	ZScore      []RankedEntry
	ML          []RankedEntry
	Comparison  []ComparisonRow
	Diagnostics FitDiagnostics
}
