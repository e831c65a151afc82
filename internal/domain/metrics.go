package domain

// AccountMetrics is one row of the per-account metrics table.
// All fields are derived by the aggregator, the metrics engine and the
// ranking methods; none is set independently.
type AccountMetrics struct {
	AccountID string

	// Aggregation
	TotalQuantity        float64
	PnL                  float64 // epsilon-guarded sum of realized profit
	TotalFee             float64
	TotalQty             float64
	FirstTradeTime       int64 // ms
	LastTradeTime        int64 // ms
	UniqueAssets         int
	TotalPositions       int
	TradingDurationHours float64
	AvgTradesPerHour     float64

	// Return / risk
	ROI                 float64
	MeanReturn          float64
	StdDevReturn        float64 // same value on every row
	SharpeRatio         float64
	CumulativeProfit    float64 // running, account_id ASC
	MaxCumulativeProfit float64
	Drawdown            float64
	MaxDrawdownPct      float64

	// Activity
	WinPositions       int
	WinRatePct         float64
	TotalBuyPositions  int
	TotalSellPositions int
	NetPositions       int

	// Weighted-score helpers
	ROINorm          float64
	PnLNorm          float64
	SharpeNorm       float64
	WinRateNorm      float64
	PositionsNorm    float64
	NetPositionsNorm float64
	TradeWeightScore float64

	// Standardized-score helpers
	ROIZ          float64
	PnLZ          float64
	SharpeZ       float64
	WinRateZ      float64
	PositionsZ    float64
	NetPositionsZ float64
	TradeZScore   float64

	// Regression output
	TradeMLScore float64
}
