package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"trade-leaderboard/internal/domain"
)

// MetricsHeader lists the account_metrics.csv columns.
var MetricsHeader = []string{
	"Port_IDs", "Total_Quantity", "PnL", "Total_Fee", "Total_Qty",
	"First_Trade_Time", "Last_Trade_Time", "Unique_Assets", "Total_Positions",
	"Trading_Duration_Hours", "Avg_Trades_Per_Hour",
	"ROI", "Mean_Return", "Std_Dev_Return", "Sharpe_Ratio",
	"Cumulative_Profit", "Max_Cumulative_Profit", "Drawdown", "Max_Drawdown (%)",
	"Win_Positions", "Win_Rate (%)", "Total_Buy_Positions", "Total_Sell_Positions", "Net_Positions",
	"ROI_Norm", "PnL_Norm", "Sharpe_Norm", "WinRate_Norm", "Positions_Norm", "Net_Positions_Norm", "Trade_Weight_Score",
	"ROI_Z", "PnL_Z", "Sharpe_Z", "WinRate_Z", "Positions_Z", "Net_Positions_Z", "Trade_Z_Score",
	"Trade_ML_Score",
}

// LeaderboardHeader lists the leaderboard.csv columns.
var LeaderboardHeader = []string{
	"Rank", "WS_Ranking", "Weight_Score", "ZS_Ranking", "Z-Score", "ML_Ranking", "Machine_Learning",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// metricsRecord returns m as cells in MetricsHeader order.
func metricsRecord(m *domain.AccountMetrics) []string {
	f := formatFloat
	i := strconv.Itoa
	return []string{
		m.AccountID, f(m.TotalQuantity), f(m.PnL), f(m.TotalFee), f(m.TotalQty),
		strconv.FormatInt(m.FirstTradeTime, 10), strconv.FormatInt(m.LastTradeTime, 10), i(m.UniqueAssets), i(m.TotalPositions),
		f(m.TradingDurationHours), f(m.AvgTradesPerHour),
		f(m.ROI), f(m.MeanReturn), f(m.StdDevReturn), f(m.SharpeRatio),
		f(m.CumulativeProfit), f(m.MaxCumulativeProfit), f(m.Drawdown), f(m.MaxDrawdownPct),
		i(m.WinPositions), f(m.WinRatePct), i(m.TotalBuyPositions), i(m.TotalSellPositions), i(m.NetPositions),
		f(m.ROINorm), f(m.PnLNorm), f(m.SharpeNorm), f(m.WinRateNorm), f(m.PositionsNorm), f(m.NetPositionsNorm), f(m.TradeWeightScore),
		f(m.ROIZ), f(m.PnLZ), f(m.SharpeZ), f(m.WinRateZ), f(m.PositionsZ), f(m.NetPositionsZ), f(m.TradeZScore),
		f(m.TradeMLScore),
	}
}

// comparisonRecord returns r as cells in LeaderboardHeader order.
func comparisonRecord(r domain.ComparisonRow) []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.WSAccountID, formatFloat(r.WeightScore),
		r.ZSAccountID, formatFloat(r.ZScore),
		r.MLAccountID, formatFloat(r.MLScore),
	}
}

// RenderMetricsCSV renders the per-account metrics table as CSV string.
func RenderMetricsCSV(rows []*domain.AccountMetrics) string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, MetricsHeader)
	for _, m := range rows {
		records = append(records, metricsRecord(m))
	}
	return renderCSV(records)
}

// RenderLeaderboardCSV renders the comparison table as CSV string.
func RenderLeaderboardCSV(rows []domain.ComparisonRow) string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, LeaderboardHeader)
	for _, r := range rows {
		records = append(records, comparisonRecord(r))
	}
	return renderCSV(records)
}

func renderCSV(records [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// Writing to a strings.Builder cannot fail.
	_ = w.WriteAll(records)
	return sb.String()
}
