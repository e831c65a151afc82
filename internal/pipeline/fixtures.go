package pipeline

import (
	"fmt"
	"math/rand"
	"strings"

	"trade-leaderboard/internal/domain"
)

// FixtureAccounts is the number of accounts in the default fixture dataset.
const FixtureAccounts = 40

var fixtureSymbols = []struct {
	symbol string
	base   string
	price  float64
}{
	{"BTCUSDT", "BTC", 64000},
	{"ETHUSDT", "ETH", 3400},
	{"SOLUSDT", "SOL", 140},
	{"BNBUSDT", "BNB", 580},
	{"XRPUSDT", "XRP", 0.52},
	{"DOGEUSDT", "DOGE", 0.13},
}

// FixtureEntries returns a deterministic synthetic dataset of n accounts with
// histories in the source text encoding. Every fifth account starts with a
// trade missing its price, which exercises forward-fill.
func FixtureEntries(n int) []domain.RawAccountEntry {
	rng := rand.New(rand.NewSource(7))
	entries := make([]domain.RawAccountEntry, 0, n)

	start := int64(1718841600000) // 2024-06-20 00:00:00 UTC
	for i := 0; i < n; i++ {
		accountID := fmt.Sprintf("%019d", 3925368433214965504+int64(i)*7919)
		trades := 3 + rng.Intn(12)
		t := start + rng.Int63n(86_400_000)

		items := make([]string, 0, trades)
		for j := 0; j < trades; j++ {
			s := fixtureSymbols[rng.Intn(len(fixtureSymbols))]
			side := "BUY"
			if rng.Intn(2) == 1 {
				side = "SELL"
			}
			price := s.price * (0.95 + 0.1*rng.Float64())
			quantity := 50 + rng.Float64()*950
			profit := 0.0
			if side == "SELL" {
				profit = (rng.Float64() - 0.4) * quantity * 0.1
			}

			priceField := fmt.Sprintf("%.4f", price)
			if i%5 == 0 && j == 1 {
				priceField = "None"
			}

			items = append(items, fmt.Sprintf(
				"{'time': %d, 'symbol': '%s', 'side': '%s', 'price': %s, 'fee': %.6f, "+
					"'feeAsset': 'USDT', 'quantity': %.4f, 'quantityAsset': 'USDT', "+
					"'realizedProfit': %.6f, 'realizedProfitAsset': 'USDT', 'baseAsset': '%s', "+
					"'qty': %.6f, 'positionSide': 'BOTH', 'activeBuy': %s}",
				t, s.symbol, side, priceField, -quantity*0.0004,
				quantity, profit, s.base, quantity/price, pyBool(side == "BUY"),
			))
			t += 60_000 + rng.Int63n(3_600_000)
		}

		entries = append(entries, domain.RawAccountEntry{
			AccountID:    accountID,
			TradeHistory: domain.TextHistory("[" + strings.Join(items, ", ") + "]"),
		})
	}
	return entries
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
