package ranking

import (
	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// rankedColumns extracts the six ranked source columns in weight order.
func rankedColumns(rows []*domain.AccountMetrics) [6][]float64 {
	var cols [6][]float64
	for i := range cols {
		cols[i] = make([]float64, len(rows))
	}
	for i, m := range rows {
		cols[0][i] = m.ROI
		cols[1][i] = m.PnL
		cols[2][i] = m.SharpeRatio
		cols[3][i] = m.WinRatePct
		cols[4][i] = float64(m.TotalPositions)
		cols[5][i] = float64(m.NetPositions)
	}
	return cols
}

// ApplyWeightScore divides each ranked column by its maximum across accounts
// and stores the weighted sum in TradeWeightScore. A column whose maximum is
// 0 normalizes to 0.
func ApplyWeightScore(rows []*domain.AccountMetrics, w Weights) {
	cols := rankedColumns(rows)
	var maxes [6]float64
	for c := range cols {
		maxes[c] = stats.Max(cols[c])
	}

	norm := func(c, i int) float64 {
		if maxes[c] == 0 {
			return 0
		}
		return stats.Finite(cols[c][i] / maxes[c])
	}

	for i, m := range rows {
		m.ROINorm = norm(0, i)
		m.PnLNorm = norm(1, i)
		m.SharpeNorm = norm(2, i)
		m.WinRateNorm = norm(3, i)
		m.PositionsNorm = norm(4, i)
		m.NetPositionsNorm = norm(5, i)
		m.TradeWeightScore = w.combine(m.ROINorm, m.PnLNorm, m.SharpeNorm, m.WinRateNorm, m.PositionsNorm, m.NetPositionsNorm)
	}
}
