package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

const msPerHour = 3600 * 1000.0

// AccountAggregate holds the single-pass per-account sums and counts.
type AccountAggregate struct {
	AccountID string

	TotalQuantity  float64
	RealizedProfit float64 // raw sum, before the epsilon guard
	TotalFee       float64
	TotalQty       float64

	FirstTradeTime int64
	LastTradeTime  int64

	UniqueAssets   int
	TotalPositions int

	TradingDurationHours float64
	AvgTradesPerHour     float64

	WinPositions  int
	BuyPositions  int
	SellPositions int
}

// Aggregator groups trade records by account.
type Aggregator struct {
	logger *zap.Logger

	// InconsistentAccounts tracks accounts whose last trade precedes the first
	// (for data quality reporting). Key: account_id, Value: duration in hours.
	InconsistentAccounts map[string]float64

	// SidelessTrades counts trades per account whose side is neither BUY nor
	// SELL. They contribute to sums but not to positions.
	SidelessTrades map[string]int
}

// NewAggregator creates a new account aggregator. A nil logger disables logging.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		logger:               logger,
		InconsistentAccounts: make(map[string]float64),
		SidelessTrades:       make(map[string]int),
	}
}

// Aggregate computes one AccountAggregate per distinct account_id, ordered by
// account_id ASC. Returns ErrNoTrades for an empty table.
func (a *Aggregator) Aggregate(trades []*domain.TradeRecord) ([]*AccountAggregate, error) {
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	a.InconsistentAccounts = make(map[string]float64)
	a.SidelessTrades = make(map[string]int)

	byAccount := make(map[string]*AccountAggregate)
	symbols := make(map[string]map[string]struct{})

	for _, t := range trades {
		agg, ok := byAccount[t.AccountID]
		if !ok {
			agg = &AccountAggregate{
				AccountID:      t.AccountID,
				FirstTradeTime: t.Time,
				LastTradeTime:  t.Time,
			}
			byAccount[t.AccountID] = agg
			symbols[t.AccountID] = make(map[string]struct{})
		}

		agg.TotalQuantity += t.Quantity
		agg.RealizedProfit += t.RealizedProfit
		agg.TotalFee += t.Fee
		agg.TotalQty += t.Qty
		if t.Time < agg.FirstTradeTime {
			agg.FirstTradeTime = t.Time
		}
		if t.Time > agg.LastTradeTime {
			agg.LastTradeTime = t.Time
		}
		symbols[t.AccountID][t.Symbol] = struct{}{}

		// Only trades with a usable side are positions, so total stays buy + sell.
		if !t.Side.IsValid() {
			a.SidelessTrades[t.AccountID]++
			continue
		}
		agg.TotalPositions++
		if t.Side == domain.SideBuy {
			agg.BuyPositions++
		} else {
			agg.SellPositions++
		}
		if t.IsWin() {
			agg.WinPositions++
		}
	}

	result := make([]*AccountAggregate, 0, len(byAccount))
	for id, agg := range byAccount {
		agg.UniqueAssets = len(symbols[id])
		agg.TradingDurationHours = float64(agg.LastTradeTime-agg.FirstTradeTime) / msPerHour
		agg.AvgTradesPerHour = computeTradesPerHour(agg.TotalPositions, agg.TradingDurationHours)
		if agg.TradingDurationHours < 0 {
			a.InconsistentAccounts[id] = agg.TradingDurationHours
		}
		result = append(result, agg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountID < result[j].AccountID
	})

	if len(a.InconsistentAccounts) > 0 {
		a.logger.Warn("accounts with inconsistent trade timestamps",
			zap.Int("count", len(a.InconsistentAccounts)))
	}
	if len(a.SidelessTrades) > 0 {
		a.logger.Warn("trades without a usable side",
			zap.Int("accounts", len(a.SidelessTrades)))
	}
	a.logger.Info("aggregated accounts",
		zap.Int("trades", len(trades)),
		zap.Int("accounts", len(result)),
	)

	return result, nil
}

// AggregateStored loads a run's trades from the store and aggregates them.
func (a *Aggregator) AggregateStored(ctx context.Context, store storage.TradeRecordStore, runID string) ([]*AccountAggregate, error) {
	trades, err := store.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}
	return a.Aggregate(trades)
}

// GetDataQualityErrors returns data quality messages sorted by account_id
// for deterministic output.
func (a *Aggregator) GetDataQualityErrors() []string {
	var errs []string
	for _, accountID := range sortedKeys(a.InconsistentAccounts) {
		errs = append(errs, fmt.Sprintf("account %s has negative trading duration (%.4f h)", accountID, a.InconsistentAccounts[accountID]))
	}
	for _, accountID := range sortedKeys(a.SidelessTrades) {
		errs = append(errs, fmt.Sprintf("account %s has %d trades without a BUY/SELL side", accountID, a.SidelessTrades[accountID]))
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// computeTradesPerHour divides positions by duration. A zero or negative
// duration has no rate and yields 0.
func computeTradesPerHour(positions int, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return float64(positions) / hours
}
