package ranking

import (
	"sort"

	"trade-leaderboard/internal/domain"
)

// DefaultTopN is the length of each leaderboard.
const DefaultTopN = 20

// TopN sorts accounts by score descending, ties by account_id ASC, and
// returns the first n.
func TopN(rows []*domain.AccountMetrics, score func(*domain.AccountMetrics) float64, n int) []domain.RankedEntry {
	entries := make([]domain.RankedEntry, len(rows))
	for i, m := range rows {
		entries[i] = domain.RankedEntry{AccountID: m.AccountID, Score: score(m)}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].AccountID < entries[j].AccountID
	})

	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// BuildComparison zips the three rankings by position into rank 1..len rows.
// Methods are independent, so a rank may list three different accounts.
func BuildComparison(ws, zs, ml []domain.RankedEntry) []domain.ComparisonRow {
	n := max(len(ws), len(zs), len(ml))
	rows := make([]domain.ComparisonRow, n)
	for i := range rows {
		r := domain.ComparisonRow{Rank: i + 1}
		if i < len(ws) {
			r.WSAccountID, r.WeightScore = ws[i].AccountID, ws[i].Score
		}
		if i < len(zs) {
			r.ZSAccountID, r.ZScore = zs[i].AccountID, zs[i].Score
		}
		if i < len(ml) {
			r.MLAccountID, r.MLScore = ml[i].AccountID, ml[i].Score
		}
		rows[i] = r
	}
	return rows
}

// RankingsFromComparison splits comparison rows back into the three rankings.
func RankingsFromComparison(rows []domain.ComparisonRow) (ws, zs, ml []domain.RankedEntry) {
	for _, r := range rows {
		if r.WSAccountID != "" {
			ws = append(ws, domain.RankedEntry{AccountID: r.WSAccountID, Score: r.WeightScore})
		}
		if r.ZSAccountID != "" {
			zs = append(zs, domain.RankedEntry{AccountID: r.ZSAccountID, Score: r.ZScore})
		}
		if r.MLAccountID != "" {
			ml = append(ml, domain.RankedEntry{AccountID: r.MLAccountID, Score: r.MLScore})
		}
	}
	return ws, zs, ml
}
