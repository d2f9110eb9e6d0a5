package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the performance report and site index",
	Long: `Renders the performance report from the current ledger and rebuilds
the site index. Momentum reports are written by the weekly run; this
command does not recompute rankings.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.reports.WritePerformance(context.Background())
	if err != nil {
		return err
	}
	if err := a.reports.WriteIndex(); err != nil {
		return err
	}

	fmt.Println("wrote", filepath.Join(a.cfg.ReportDir, name))
	return nil
}
