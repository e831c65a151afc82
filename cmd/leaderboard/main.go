// Command leaderboard ranks trading accounts from their trade histories.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank trading accounts by weighted, standardized and regression scores",
	Long: `Leaderboard reads per-account trade histories, computes performance
metrics for every account and ranks the accounts three ways:

  - Weighted score over max-normalized metrics
  - Standardized score over z-scored metrics
  - Random forest regression of the weighted score

The three top lists are merged into one comparison table and written as
CSV, Markdown and an Excel workbook.`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (LEADERBOARD_* env vars override it)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
