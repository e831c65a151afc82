package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	SheetLeaderboard = "Leaderboard"
	SheetMetrics     = "Account Metrics"
	SheetDiagnostics = "Diagnostics"
)

// WriteWorkbook writes the comparison table, the metrics table and the fit
// diagnostics as an xlsx workbook to w.
func WriteWorkbook(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetLeaderboard); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMetrics, SheetDiagnostics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeRow(f, SheetLeaderboard, 1, toCells(LeaderboardHeader)); err != nil {
		return err
	}
	if r.Leaderboard != nil {
		for i, c := range r.Leaderboard.Comparison {
			row := []any{c.Rank, c.WSAccountID, c.WeightScore, c.ZSAccountID, c.ZScore, c.MLAccountID, c.MLScore}
			if err := writeRow(f, SheetLeaderboard, i+2, row); err != nil {
				return err
			}
		}
	}

	if err := writeRow(f, SheetMetrics, 1, toCells(MetricsHeader)); err != nil {
		return err
	}
	for i, m := range r.Metrics {
		if err := writeRow(f, SheetMetrics, i+2, numericCells(metricsRecord(m))); err != nil {
			return err
		}
	}

	diagRows := [][]any{{"Metric", "Value"}, {"Run", r.RunID}}
	if r.Leaderboard != nil {
		d := r.Leaderboard.Diagnostics
		diagRows = append(diagRows,
			[]any{"R2", d.R2},
			[]any{"MAE", d.MAE},
			[]any{"Train Size", d.TrainSize},
			[]any{"Test Size", d.TestSize},
		)
	}
	for i, row := range diagRows {
		if err := writeRow(f, SheetDiagnostics, i+1, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// numericCells keeps the first cell (account id) as text and stores the
// rest as numbers so spreadsheet formulas work on them.
func numericCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = n
		} else {
			out[i] = v
		}
	}
	return out
}
