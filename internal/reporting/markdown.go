package reporting

import (
	"fmt"
	"strings"
	"time"

	"trade-leaderboard/internal/stats"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Account Leaderboard\n\n")
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Data Summary
	d := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Input Entries | %d |\n", d.Entries))
	sb.WriteString(fmt.Sprintf("| Parse Failures | %d |\n", d.ParseFailures))
	sb.WriteString(fmt.Sprintf("| Unknown Payloads | %d |\n", d.UnknownPayloads))
	sb.WriteString(fmt.Sprintf("| Empty Histories | %d |\n", d.EmptyHistories))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", d.Trades))
	sb.WriteString(fmt.Sprintf("| Forward-Filled Values | %d |\n", d.ForwardFilled))
	sb.WriteString(fmt.Sprintf("| Accounts | %d |\n", d.Accounts))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", d.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", d.DateRangeEnd))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality) > 0 {
		for _, msg := range r.DataQuality {
			sb.WriteString(fmt.Sprintf("- %s\n", msg))
		}
	} else {
		sb.WriteString("No data quality issues found.\n")
	}
	sb.WriteString("\n")

	// Outlier Suppression
	s := r.Suppression
	sb.WriteString("## Outlier Suppression\n\n")
	sb.WriteString(fmt.Sprintf("Capped values: %d | Rows replaced with medians: %d\n\n", s.CappedValues, s.ReplacedRows))
	if len(s.Columns) > 0 {
		sb.WriteString("| Column | P1 | P99 | Median |\n")
		sb.WriteString("|--------|----|-----|--------|\n")
		for _, c := range s.Columns {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f |\n", c.Name, c.Lower, c.Upper, c.Median))
		}
		sb.WriteString("\n")

		sb.WriteString("### Distributions\n\n")
		sb.WriteString("| Column | Stage | Count | Mean | Std | Min | P25 | Median | P75 | Max |\n")
		sb.WriteString("|--------|-------|-------|------|-----|-----|-----|--------|-----|-----|\n")
		for _, c := range s.Columns {
			writeSummaryRow(&sb, c.Name, "before", c.Before)
			writeSummaryRow(&sb, c.Name, "after", c.After)
		}
	}
	sb.WriteString("\n")

	// Metrics
	m := r.MetricsSummary
	sb.WriteString("## Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Std_Dev_Return | %.6f |\n", m.StdDevReturn))
	sb.WriteString(fmt.Sprintf("| Zero PnL Accounts (epsilon) | %d |\n", m.ZeroPnLAccounts))
	sb.WriteString(fmt.Sprintf("| Zero Quantity Guards | %d |\n", m.ZeroQuantityGuards))
	sb.WriteString(fmt.Sprintf("| Zero Peak Guards | %d |\n", m.ZeroPeakGuards))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if r.Leaderboard != nil && len(r.Leaderboard.Comparison) > 0 {
		sb.WriteString("| Rank | WS_Ranking | Weight_Score | ZS_Ranking | Z-Score | ML_Ranking | Machine_Learning |\n")
		sb.WriteString("|------|------------|--------------|------------|---------|------------|------------------|\n")
		for _, c := range r.Leaderboard.Comparison {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.4f | %s | %.4f | %s | %.4f |\n",
				c.Rank, c.WSAccountID, c.WeightScore, c.ZSAccountID, c.ZScore, c.MLAccountID, c.MLScore))
		}
	} else {
		sb.WriteString("No leaderboard available.\n")
	}
	sb.WriteString("\n")

	// Regression Diagnostics
	sb.WriteString("## Regression Diagnostics\n\n")
	if r.Leaderboard != nil {
		diag := r.Leaderboard.Diagnostics
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| R² (test) | %.4f |\n", diag.R2))
		sb.WriteString(fmt.Sprintf("| MAE (test) | %.4f |\n", diag.MAE))
		sb.WriteString(fmt.Sprintf("| Train Size | %d |\n", diag.TrainSize))
		sb.WriteString(fmt.Sprintf("| Test Size | %d |\n", diag.TestSize))
		sb.WriteString("\nDiagnostic only. The target is one of the inputs, so a high R² is expected.\n")
	} else {
		sb.WriteString("No diagnostics available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeSummaryRow(sb *strings.Builder, column, stage string, s stats.Summary) {
	sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
		column, stage, s.Count, s.Mean, s.Stddev, s.Min, s.P25, s.Median, s.P75, s.Max))
}
