// Package verification recomputes a stored run from its stored trades and
// checks that the stored metrics and leaderboard match.
package verification

import (
	"math"
	"strconv"

	"trade-leaderboard/internal/domain"
)

// FloatTolerance is the relative tolerance for float64 comparisons.
// Values with magnitude below 1 are compared absolutely.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // recomputed value
}

// AccountResult contains the result of verifying one account's metrics row.
type AccountResult struct {
	AccountID   string
	Match       bool
	Divergences []FieldDivergence
}

// Report contains the results of verifying one run.
type Report struct {
	RunID              string
	TotalAccounts      int
	MatchedAccounts    int
	DivergentAccounts  int
	MissingAccounts    []string // recomputed but not stored
	UnexpectedAccounts []string // stored but not recomputed
	Accounts           []AccountResult
	Leaderboard        []FieldDivergence
}

// Match reports whether the stored run is fully reproduced.
func (r *Report) Match() bool {
	return r.DivergentAccounts == 0 &&
		len(r.MissingAccounts) == 0 &&
		len(r.UnexpectedAccounts) == 0 &&
		len(r.Leaderboard) == 0
}

type floatField struct {
	name string
	get  func(*domain.AccountMetrics) float64
}

type intField struct {
	name string
	get  func(*domain.AccountMetrics) int64
}

var metricFloatFields = []floatField{
	{"TotalQuantity", func(m *domain.AccountMetrics) float64 { return m.TotalQuantity }},
	{"PnL", func(m *domain.AccountMetrics) float64 { return m.PnL }},
	{"TotalFee", func(m *domain.AccountMetrics) float64 { return m.TotalFee }},
	{"TotalQty", func(m *domain.AccountMetrics) float64 { return m.TotalQty }},
	{"TradingDurationHours", func(m *domain.AccountMetrics) float64 { return m.TradingDurationHours }},
	{"AvgTradesPerHour", func(m *domain.AccountMetrics) float64 { return m.AvgTradesPerHour }},
	{"ROI", func(m *domain.AccountMetrics) float64 { return m.ROI }},
	{"MeanReturn", func(m *domain.AccountMetrics) float64 { return m.MeanReturn }},
	{"StdDevReturn", func(m *domain.AccountMetrics) float64 { return m.StdDevReturn }},
	{"SharpeRatio", func(m *domain.AccountMetrics) float64 { return m.SharpeRatio }},
	{"CumulativeProfit", func(m *domain.AccountMetrics) float64 { return m.CumulativeProfit }},
	{"MaxCumulativeProfit", func(m *domain.AccountMetrics) float64 { return m.MaxCumulativeProfit }},
	{"Drawdown", func(m *domain.AccountMetrics) float64 { return m.Drawdown }},
	{"MaxDrawdownPct", func(m *domain.AccountMetrics) float64 { return m.MaxDrawdownPct }},
	{"WinRatePct", func(m *domain.AccountMetrics) float64 { return m.WinRatePct }},
	{"TradeWeightScore", func(m *domain.AccountMetrics) float64 { return m.TradeWeightScore }},
	{"TradeZScore", func(m *domain.AccountMetrics) float64 { return m.TradeZScore }},
	{"TradeMLScore", func(m *domain.AccountMetrics) float64 { return m.TradeMLScore }},
}

var metricIntFields = []intField{
	{"FirstTradeTime", func(m *domain.AccountMetrics) int64 { return m.FirstTradeTime }},
	{"LastTradeTime", func(m *domain.AccountMetrics) int64 { return m.LastTradeTime }},
	{"UniqueAssets", func(m *domain.AccountMetrics) int64 { return int64(m.UniqueAssets) }},
	{"TotalPositions", func(m *domain.AccountMetrics) int64 { return int64(m.TotalPositions) }},
	{"WinPositions", func(m *domain.AccountMetrics) int64 { return int64(m.WinPositions) }},
	{"TotalBuyPositions", func(m *domain.AccountMetrics) int64 { return int64(m.TotalBuyPositions) }},
	{"TotalSellPositions", func(m *domain.AccountMetrics) int64 { return int64(m.TotalSellPositions) }},
	{"NetPositions", func(m *domain.AccountMetrics) int64 { return int64(m.NetPositions) }},
}

// CompareAccountMetrics compares the persisted columns of two metrics rows.
// Helper columns (*Norm, *Z) are derived from these and not compared.
func CompareAccountMetrics(stored, recomputed *domain.AccountMetrics) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.AccountID != recomputed.AccountID {
		divergences = append(divergences, FieldDivergence{
			Field:    "AccountID",
			Expected: stored.AccountID,
			Actual:   recomputed.AccountID,
		})
	}

	for _, f := range metricIntFields {
		if a, b := f.get(stored), f.get(recomputed); a != b {
			divergences = append(divergences, FieldDivergence{Field: f.name, Expected: a, Actual: b})
		}
	}

	for _, f := range metricFloatFields {
		if a, b := f.get(stored), f.get(recomputed); !floatEquals(a, b) {
			divergences = append(divergences, FieldDivergence{Field: f.name, Expected: a, Actual: b})
		}
	}

	return divergences
}

// CompareLeaderboards compares comparison tables rank by rank, and the fit
// diagnostics.
func CompareLeaderboards(stored, recomputed *domain.Leaderboard) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored.Comparison) != len(recomputed.Comparison) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Comparison.Len",
			Expected: len(stored.Comparison),
			Actual:   len(recomputed.Comparison),
		})
	}

	n := min(len(stored.Comparison), len(recomputed.Comparison))
	for i := 0; i < n; i++ {
		s, r := stored.Comparison[i], recomputed.Comparison[i]
		prefix := "Comparison[" + strconv.Itoa(s.Rank) + "]."

		for _, p := range []struct {
			field    string
			expected string
			actual   string
		}{
			{"WSAccountID", s.WSAccountID, r.WSAccountID},
			{"ZSAccountID", s.ZSAccountID, r.ZSAccountID},
			{"MLAccountID", s.MLAccountID, r.MLAccountID},
		} {
			if p.expected != p.actual {
				divergences = append(divergences, FieldDivergence{Field: prefix + p.field, Expected: p.expected, Actual: p.actual})
			}
		}

		for _, p := range []struct {
			field    string
			expected float64
			actual   float64
		}{
			{"WeightScore", s.WeightScore, r.WeightScore},
			{"ZScore", s.ZScore, r.ZScore},
			{"MLScore", s.MLScore, r.MLScore},
		} {
			if !floatEquals(p.expected, p.actual) {
				divergences = append(divergences, FieldDivergence{Field: prefix + p.field, Expected: p.expected, Actual: p.actual})
			}
		}
	}

	sd, rd := stored.Diagnostics, recomputed.Diagnostics
	if !floatEquals(sd.R2, rd.R2) {
		divergences = append(divergences, FieldDivergence{Field: "Diagnostics.R2", Expected: sd.R2, Actual: rd.R2})
	}
	if !floatEquals(sd.MAE, rd.MAE) {
		divergences = append(divergences, FieldDivergence{Field: "Diagnostics.MAE", Expected: sd.MAE, Actual: rd.MAE})
	}
	if sd.TrainSize != rd.TrainSize || sd.TestSize != rd.TestSize {
		divergences = append(divergences, FieldDivergence{
			Field:    "Diagnostics.Split",
			Expected: [2]int{sd.TrainSize, sd.TestSize},
			Actual:   [2]int{rd.TrainSize, rd.TestSize},
		})
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= FloatTolerance*scale
}
