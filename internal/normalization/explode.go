package normalization

import (
	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/idhash"
)

// explodedRow is one trade object paired with the account it came from.
type explodedRow struct {
	accountID string
	raw       domain.RawTrade
}

// fillState carries the last non-null value seen per column.
type fillState struct {
	time                *int64
	symbol              *string
	side                *string
	price               *float64
	fee                 *float64
	feeAsset            *string
	quantity            *float64
	quantityAsset       *string
	realizedProfit      *float64
	realizedProfitAsset *string
	baseAsset           *string
	qty                 *float64
	positionSide        *string
	activeBuy           *bool
}

// forwardFill converts exploded rows to trade records in table order.
// A null field takes the last non-null value of the same column from any
// previous row; with no previous value it stays zero. Returns the number of
// values filled.
func forwardFill(rows []explodedRow) ([]*domain.TradeRecord, int) {
	var (
		st       fillState
		filled   int
		ordinals = make(map[string]int)
	)

	trades := make([]*domain.TradeRecord, 0, len(rows))
	for i, r := range rows {
		raw := r.raw
		t := &domain.TradeRecord{
			AccountID:           r.accountID,
			Seq:                 i,
			Time:                pick(&st.time, raw.Time, &filled),
			Symbol:              pick(&st.symbol, raw.Symbol, &filled),
			Side:                domain.ParseSide(pick(&st.side, raw.Side, &filled)),
			Price:               pick(&st.price, raw.Price, &filled),
			Fee:                 pick(&st.fee, raw.Fee, &filled),
			FeeAsset:            pick(&st.feeAsset, raw.FeeAsset, &filled),
			Quantity:            pick(&st.quantity, raw.Quantity, &filled),
			QuantityAsset:       pick(&st.quantityAsset, raw.QuantityAsset, &filled),
			RealizedProfit:      pick(&st.realizedProfit, raw.RealizedProfit, &filled),
			RealizedProfitAsset: pick(&st.realizedProfitAsset, raw.RealizedProfitAsset, &filled),
			BaseAsset:           pick(&st.baseAsset, raw.BaseAsset, &filled),
			Qty:                 pick(&st.qty, raw.Qty, &filled),
			PositionSide:        pick(&st.positionSide, raw.PositionSide, &filled),
			ActiveBuy:           pick(&st.activeBuy, raw.ActiveBuy, &filled),
		}

		ordinal := ordinals[r.accountID]
		ordinals[r.accountID] = ordinal + 1
		t.TradeID = idhash.ComputeTradeID(t.AccountID, t.Time, t.Symbol, t.Side.String(), ordinal)

		trades = append(trades, t)
	}
	return trades, filled
}

// pick returns v when present and remembers it; otherwise the last remembered
// value (counting the fill), or the zero value.
func pick[T any](last **T, v *T, filled *int) T {
	if v != nil {
		*last = v
		return *v
	}
	if *last != nil {
		*filled++
		return **last
	}
	var zero T
	return zero
}
