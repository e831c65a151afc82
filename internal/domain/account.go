package domain

// RawAccountEntry is one source row before explosion: an account and its
// embedded trade history.
type RawAccountEntry struct {
	AccountID    string
	TradeHistory TradeHistory
}

// HistoryKind tags the encoding of a TradeHistory payload.
type HistoryKind int

const (
	// HistoryUnknown is any payload that is neither decoded nor text.
	HistoryUnknown HistoryKind = iota
	// HistoryStructured holds already-decoded trade objects.
	HistoryStructured
	// HistoryText holds a textual encoding (single quotes, True/False/None).
	HistoryText
)

// String returns the kind name.
func (k HistoryKind) String() string {
	switch k {
	case HistoryStructured:
		return "structured"
	case HistoryText:
		return "text"
	default:
		return "unknown"
	}
}

// TradeHistory is a tagged union over the payload encodings a source row can carry.
// Exactly one of Items or Text is meaningful, selected by Kind.
type TradeHistory struct {
	Kind  HistoryKind
	Items []RawTrade
	Text  string
}

// StructuredHistory wraps already-decoded trades.
func StructuredHistory(items []RawTrade) TradeHistory {
	return TradeHistory{Kind: HistoryStructured, Items: items}
}

// TextHistory wraps a textual payload.
func TextHistory(text string) TradeHistory {
	return TradeHistory{Kind: HistoryText, Text: text}
}

// RawTrade is a trade object as decoded from the source payload.
// Nil pointers mark fields that were absent or null and are forward-filled
// by the normalizer.
type RawTrade struct {
	Time                *int64   `json:"time"`
	Symbol              *string  `json:"symbol"`
	Side                *string  `json:"side"`
	Price               *float64 `json:"price"`
	Fee                 *float64 `json:"fee"`
	FeeAsset            *string  `json:"feeAsset"`
	Quantity            *float64 `json:"quantity"`
	QuantityAsset       *string  `json:"quantityAsset"`
	RealizedProfit      *float64 `json:"realizedProfit"`
	RealizedProfitAsset *string  `json:"realizedProfitAsset"`
	BaseAsset           *string  `json:"baseAsset"`
	Qty                 *float64 `json:"qty"`
	PositionSide        *string  `json:"positionSide"`
	ActiveBuy           *bool    `json:"activeBuy"`
}
