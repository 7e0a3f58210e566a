package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "weektrack",
	Short: "Weekly price table builder and tracker",
	Long: `weektrack assembles week-ending price tables for a list of ticker
symbols and derives percent-change, normalized performance, drawdown and
scorecard views from them.

Examples:
  weektrack build --symbols "AAPL, MSFT, GOOG" --weeks 26
  weektrack build --file watchlist.txt --out ./exports
  weektrack serve
  weektrack version`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
