package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "Weekly equity momentum tracker with option shadow positions",
	Long: `momo ranks S&P universes by one-year momentum every week, keeps a
durable position ledger for the resulting signals, and shadows each signal
with three option strategies.

Usage:
  go run ./cmd/momo [command]

Examples:
  go run ./cmd/momo migrate
  go run ./cmd/momo run
  go run ./cmd/momo reconcile
  go run ./cmd/momo api`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
