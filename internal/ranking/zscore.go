package ranking

import (
	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/stats"
)

// ApplyZScore standardizes each ranked column with its mean and population
// standard deviation and stores the weighted sum in TradeZScore.
// A constant column standardizes to 0.
func ApplyZScore(rows []*domain.AccountMetrics, w Weights) {
	cols := rankedColumns(rows)
	var means, stds [6]float64
	for c := range cols {
		means[c] = stats.Mean(cols[c])
		stds[c] = stats.PopulationStddev(cols[c])
	}

	z := func(c, i int) float64 {
		if stds[c] == 0 {
			return 0
		}
		return stats.Finite((cols[c][i] - means[c]) / stds[c])
	}

	for i, m := range rows {
		m.ROIZ = z(0, i)
		m.PnLZ = z(1, i)
		m.SharpeZ = z(2, i)
		m.WinRateZ = z(3, i)
		m.PositionsZ = z(4, i)
		m.NetPositionsZ = z(5, i)
		m.TradeZScore = w.combine(m.ROIZ, m.PnLZ, m.SharpeZ, m.WinRateZ, m.PositionsZ, m.NetPositionsZ)
	}
}
