package domain

// TradeRecord represents one executed trade after normalization.
// A record belongs to exactly one account and is not modified once the
// normalizer has produced it; later stages work on copies.
type TradeRecord struct {
	TradeID   string // deterministic hash, storage key only
	AccountID string // owning account (Port_IDs in the source data)
	Seq       int    // position in the normalized table

	Time   int64  // execution timestamp (ms)
	Symbol string // traded pair, e.g. BTCUSDT
	Side   Side   // BUY | SELL

	Price          float64 // execution price
	Quantity       float64 // quote-side quantity (summed into Total_Quantity)
	Qty            float64 // base-side coin quantity (summed into Total_Qty)
	RealizedProfit float64 // signed realized PnL of the fill
	Fee            float64 // fee paid

	// Pass-through attributes, not used by the metrics.
	FeeAsset            string
	QuantityAsset       string
	RealizedProfitAsset string
	BaseAsset           string
	PositionSide        string
	ActiveBuy           bool
}

// IsWin reports whether the trade closed with a positive realized profit.
func (t *TradeRecord) IsWin() bool {
	return t.RealizedProfit > 0
}
