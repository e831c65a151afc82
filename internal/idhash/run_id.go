package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"trade-leaderboard/internal/domain"
)

// ComputeRunID fingerprints a raw dataset together with the settings that
// shape its results.
// Formula: SHA256 over account_id, payload kind and payload text/items of every
// entry in input order, then each setting formatted with %+v. Returns the
// base58-encoded digest, short enough for file names and primary keys.
func ComputeRunID(entries []domain.RawAccountEntry, settings ...any) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s|%d|", e.AccountID, e.TradeHistory.Kind)
		switch e.TradeHistory.Kind {
		case domain.HistoryText:
			h.Write([]byte(e.TradeHistory.Text))
		case domain.HistoryStructured:
			for _, t := range e.TradeHistory.Items {
				fmt.Fprintf(h, "%s;", rawTradeKey(t))
			}
		}
		h.Write([]byte{'\n'})
	}
	for _, s := range settings {
		fmt.Fprintf(h, "%+v;", s)
	}
	return base58.Encode(h.Sum(nil))
}

func rawTradeKey(t domain.RawTrade) string {
	return fmt.Sprintf("%v|%v|%v|%v|%v|%v|%v|%v",
		deref(t.Time), deref(t.Symbol), deref(t.Side), deref(t.Price),
		deref(t.Quantity), deref(t.Qty), deref(t.RealizedProfit), deref(t.Fee))
}

func deref[T any](p *T) any {
	if p == nil {
		return "<nil>"
	}
	return *p
}
