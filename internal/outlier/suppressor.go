// Package outlier caps extreme trade values and neutralizes rows whose realized
// profit deviates sharply from its trailing window.
package outlier

import (
	"math"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// Params configures the two-stage filter.
type Params struct {
	LowerPercentile float64 `yaml:"lower_percentile"` // capping floor, fraction (0.01)
	UpperPercentile float64 `yaml:"upper_percentile"` // capping ceiling, fraction (0.99)
	Window          int     `yaml:"window"`           // trailing window for the rolling z-score
	ZThreshold      float64 `yaml:"z_threshold"`      // rows with |z| above this are replaced
}

// DefaultParams returns the 1%/99% caps and a 50-row window with threshold 1.
func DefaultParams() Params {
	return Params{
		LowerPercentile: 0.01,
		UpperPercentile: 0.99,
		Window:          50,
		ZThreshold:      1,
	}
}

// Bounds is the capping interval applied to one column.
type Bounds struct {
	Lower float64
	Upper float64
}

// Report describes what the suppressor did.
type Report struct {
	PriceBounds          Bounds
	QuantityBounds       Bounds
	RealizedProfitBounds Bounds

	MedianPrice          float64
	MedianQuantity       float64
	MedianRealizedProfit float64

	CappedValues int // individual values moved to a bound
	ReplacedRows int // rows overwritten with medians

	Before map[string]stats.Summary
	After  map[string]stats.Summary
}

// Column names used in Report summaries.
const (
	ColumnPrice          = "price"
	ColumnQuantity       = "quantity"
	ColumnRealizedProfit = "realized_profit"
)

// Suppressor runs percentile capping followed by rolling-deviation replacement.
type Suppressor struct {
	params Params
	logger *zap.Logger
}

// NewSuppressor creates a suppressor. A nil logger disables logging.
func NewSuppressor(params Params, logger *zap.Logger) *Suppressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suppressor{params: params, logger: logger}
}

// Apply returns a cleaned copy of trades; the input records are not modified.
// Table order is preserved and defines the rolling window.
func (s *Suppressor) Apply(trades []*domain.TradeRecord) ([]*domain.TradeRecord, *Report) {
	out := make([]*domain.TradeRecord, len(trades))
	for i, t := range trades {
		c := *t
		out[i] = &c
	}

	report := &Report{Before: summarize(out)}
	if len(out) == 0 {
		report.After = report.Before
		return out, report
	}

	// Stage 1: two-sided percentile capping.
	report.PriceBounds = s.bounds(column(out, getPrice))
	report.QuantityBounds = s.bounds(column(out, getQuantity))
	report.RealizedProfitBounds = s.bounds(column(out, getRealizedProfit))
	for _, t := range out {
		report.CappedValues += capInto(&t.Price, report.PriceBounds)
		report.CappedValues += capInto(&t.Quantity, report.QuantityBounds)
		report.CappedValues += capInto(&t.RealizedProfit, report.RealizedProfitBounds)
	}

	// Medians are taken after capping and before any replacement.
	report.MedianPrice = stats.Median(column(out, getPrice))
	report.MedianQuantity = stats.Median(column(out, getQuantity))
	report.MedianRealizedProfit = stats.Median(column(out, getRealizedProfit))

	// Stage 2: rolling z-score over realized profit.
	z := RollingZScores(column(out, getRealizedProfit), s.params.Window)
	for i, t := range out {
		if math.Abs(z[i]) > s.params.ZThreshold {
			t.RealizedProfit = report.MedianRealizedProfit
			t.Quantity = report.MedianQuantity
			t.Price = report.MedianPrice
			report.ReplacedRows++
		}
	}

	report.After = summarize(out)

	s.logger.Info("suppressed outliers",
		zap.Int("trades", len(out)),
		zap.Int("capped_values", report.CappedValues),
		zap.Int("replaced_rows", report.ReplacedRows),
		zap.Float64("median_realized_profit", report.MedianRealizedProfit),
	)

	return out, report
}

func (s *Suppressor) bounds(values []float64) Bounds {
	sorted := stats.Sorted(values)
	return Bounds{
		Lower: stats.Percentile(sorted, s.params.LowerPercentile),
		Upper: stats.Percentile(sorted, s.params.UpperPercentile),
	}
}

// capInto clamps *v into b and reports whether it moved.
func capInto(v *float64, b Bounds) int {
	switch {
	case *v < b.Lower:
		*v = b.Lower
		return 1
	case *v > b.Upper:
		*v = b.Upper
		return 1
	}
	return 0
}

// RollingZScores computes (v - mean) / std over a trailing window that shrinks
// near the start (minimum one observation). std is the sample deviation; where
// it is zero or undefined the score is 0.
func RollingZScores(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	z := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := values[start : i+1]
		std := stats.SampleStddev(w)
		if math.IsNaN(std) || std == 0 {
			continue
		}
		z[i] = stats.Finite((values[i] - stats.Mean(w)) / std)
	}
	return z
}

func getPrice(t *domain.TradeRecord) float64          { return t.Price }
func getQuantity(t *domain.TradeRecord) float64       { return t.Quantity }
func getRealizedProfit(t *domain.TradeRecord) float64 { return t.RealizedProfit }

func column(trades []*domain.TradeRecord, get func(*domain.TradeRecord) float64) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = get(t)
	}
	return out
}

func summarize(trades []*domain.TradeRecord) map[string]stats.Summary {
	return map[string]stats.Summary{
		ColumnPrice:          stats.Describe(column(trades, getPrice)),
		ColumnQuantity:       stats.Describe(column(trades, getQuantity)),
		ColumnRealizedProfit: stats.Describe(column(trades, getRealizedProfit)),
	}
}
