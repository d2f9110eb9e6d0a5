package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runDateFlag string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full weekly pipeline once",
	Long: `Runs one complete cycle: reconcile pending fills, sync the universe,
resolve lookup dates, rank each cohort, apply signals to the ledger,
reconcile again, and render the reports.

Example:
  go run ./cmd/momo run
  go run ./cmd/momo run --date 2026-08-24`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDateFlag, "date", "", "run date (YYYY-MM-DD, default today)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	runDate := time.Now().UTC().Truncate(24 * time.Hour)
	if runDateFlag != "" {
		var err error
		if runDate, err = time.Parse("2006-01-02", runDateFlag); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return a.pipeline.Run(context.Background(), runDate)
}
