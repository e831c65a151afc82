// Package ranking scores accounts by three independent methods and merges
// their top-N lists into one comparison table.
package ranking

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when ranking weights are negative or do not sum to 1.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights are the per-metric coefficients shared by the weighted and
// standardized methods.
type Weights struct {
	ROI          float64 `yaml:"roi"`
	PnL          float64 `yaml:"pnl"`
	Sharpe       float64 `yaml:"sharpe"`
	WinRate      float64 `yaml:"win_rate"`
	Positions    float64 `yaml:"positions"`
	NetPositions float64 `yaml:"net_positions"`
}

// DefaultWeights returns ROI .2, PnL .2, Sharpe .2, WinRate .2, Positions .1, NetPositions .1.
func DefaultWeights() Weights {
	return Weights{
		ROI:          0.2,
		PnL:          0.2,
		Sharpe:       0.2,
		WinRate:      0.2,
		Positions:    0.1,
		NetPositions: 0.1,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.ROI + w.PnL + w.Sharpe + w.WinRate + w.Positions + w.NetPositions
}

// Validate checks that no weight is negative and that the weights sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.ROI, w.PnL, w.Sharpe, w.WinRate, w.Positions, w.NetPositions} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative weight %v", ErrInvalidWeights, v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("%w: sum is %v, want 1", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// combine applies the weights to the six per-metric values, in the order
// ROI, PnL, Sharpe, WinRate, Positions, NetPositions.
func (w Weights) combine(roi, pnl, sharpe, winRate, positions, netPositions float64) float64 {
	return w.ROI*roi +
		w.PnL*pnl +
		w.Sharpe*sharpe +
		w.WinRate*winRate +
		w.Positions*positions +
		w.NetPositions*netPositions
}
