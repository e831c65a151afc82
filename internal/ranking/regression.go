package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// FeatureNames lists the regression inputs in column order.
var FeatureNames = []string{
	"Total_Quantity", "PnL", "Total_Fee", "Total_Qty", "Unique_Assets",
	"Total_Positions", "ROI", "Mean_Return", "Std_Dev_Return", "Sharpe_Ratio",
	"Cumulative_Profit", "Max_Cumulative_Profit", "Drawdown", "Max_Drawdown (%)",
	"Win_Positions", "Win_Rate (%)", "Total_Buy_Positions", "Total_Sell_Positions",
	"Net_Positions", "ROI_Norm", "PnL_Norm", "Sharpe_Norm", "WinRate_Norm",
	"Positions_Norm", "Net_Positions_Norm", "Trade_Weight_Score", "ROI_Z",
	"PnL_Z", "Sharpe_Z", "WinRate_Z", "Positions_Z", "Net_Positions_Z",
	"Trade_Z_Score",
}

// RegressionParams configures the regression-score method.
type RegressionParams struct {
	Forest       ForestParams `yaml:"forest"`
	TestFraction float64      `yaml:"test_fraction"`
}

// DefaultRegressionParams returns the default forest with a 20% test split.
func DefaultRegressionParams() RegressionParams {
	return RegressionParams{
		Forest:       DefaultForestParams(),
		TestFraction: 0.2,
	}
}

// featureRow returns the FeatureNames columns of m, with NaN/Inf replaced by 0.
func featureRow(m *domain.AccountMetrics) []float64 {
	row := []float64{
		m.TotalQuantity, m.PnL, m.TotalFee, m.TotalQty, float64(m.UniqueAssets),
		float64(m.TotalPositions), m.ROI, m.MeanReturn, m.StdDevReturn, m.SharpeRatio,
		m.CumulativeProfit, m.MaxCumulativeProfit, m.Drawdown, m.MaxDrawdownPct,
		float64(m.WinPositions), m.WinRatePct, float64(m.TotalBuyPositions), float64(m.TotalSellPositions),
		float64(m.NetPositions), m.ROINorm, m.PnLNorm, m.SharpeNorm, m.WinRateNorm,
		m.PositionsNorm, m.NetPositionsNorm, m.TradeWeightScore, m.ROIZ,
		m.PnLZ, m.SharpeZ, m.WinRateZ, m.PositionsZ, m.NetPositionsZ,
		m.TradeZScore,
	}
	for i, v := range row {
		row[i] = stats.Finite(v)
	}
	return row
}

// splitIndices shuffles 0..n-1 with seed and returns (train, test), with
// ceil(fraction*n) test rows. At least one row always stays in train.
func splitIndices(n int, fraction float64, seed int64) ([]int, []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(fraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	return perm[nTest:], perm[:nTest]
}

// scaler standardizes columns with statistics learned from a fit set.
type scaler struct {
	mean  []float64
	scale []float64
}

// fitScaler learns column mean and population std. Constant columns get scale 1.
func fitScaler(x [][]float64) *scaler {
	cols := len(x[0])
	s := &scaler{mean: make([]float64, cols), scale: make([]float64, cols)}
	col := make([]float64, len(x))
	for c := 0; c < cols; c++ {
		for i, row := range x {
			col[i] = row[c]
		}
		s.mean[c] = stats.Mean(col)
		s.scale[c] = stats.PopulationStddev(col)
		if s.scale[c] == 0 {
			s.scale[c] = 1
		}
	}
	return s
}

func (s *scaler) transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		r := make([]float64, len(row))
		for c, v := range row {
			r[c] = (v - s.mean[c]) / s.scale[c]
		}
		out[i] = r
	}
	return out
}

func pick[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

// ApplyMLScore fits a forest on the train split with TradeWeightScore as
// target, predicts every account, and stores the prediction in TradeMLScore.
// ApplyWeightScore and ApplyZScore must have run first.
func ApplyMLScore(ctx context.Context, rows []*domain.AccountMetrics, params RegressionParams) (domain.FitDiagnostics, error) {
	var diag domain.FitDiagnostics
	if len(rows) == 0 {
		return diag, nil
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, m := range rows {
		x[i] = featureRow(m)
		y[i] = stats.Finite(m.TradeWeightScore)
	}

	train, test := splitIndices(len(rows), params.TestFraction, params.Forest.Seed)
	diag.TrainSize = len(train)
	diag.TestSize = len(test)

	sc := fitScaler(pick(x, train))
	scaled := sc.transform(x)

	forest := NewForest(params.Forest)
	if err := forest.Fit(ctx, pick(scaled, train), pick(y, train)); err != nil {
		return diag, fmt.Errorf("regression score: %w", err)
	}

	pred := forest.Predict(scaled)
	for i, m := range rows {
		m.TradeMLScore = pred[i]
	}

	if len(test) > 0 {
		diag.R2 = R2Score(pick(y, test), pick(pred, test))
		diag.MAE = MeanAbsoluteError(pick(y, test), pick(pred, test))
	}
	return diag, nil
}

// R2Score is the coefficient of determination. A constant target scores 1
// when predicted exactly and 0 otherwise.
func R2Score(actual, predicted []float64) float64 {
	mean := stats.Mean(actual)
	ssRes, ssTot := 0.0, 0.0
	for i, a := range actual {
		ssRes += (a - predicted[i]) * (a - predicted[i])
		ssTot += (a - mean) * (a - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// MeanAbsoluteError averages |actual - predicted|. Returns 0 for no samples.
func MeanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i, a := range actual {
		sum += math.Abs(a - predicted[i])
	}
	return sum / float64(len(actual))
}
