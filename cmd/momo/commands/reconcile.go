package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Resolve pending ledger prices",
	Long: `Runs one reconciliation pass: pending stock entries and exits fill
from daily bars, option shadows from contract closes. Safe to run any
number of times; resolved prices are never overwritten.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.reconciler.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("stock entries resolved:  %d\n", summary.StockEntriesResolved)
	fmt.Printf("stock exits resolved:    %d\n", summary.StockExitsResolved)
	fmt.Printf("option entries resolved: %d\n", summary.OptionEntriesResolved)
	fmt.Printf("option exits resolved:   %d\n", summary.OptionExitsResolved)
	if len(summary.Orphans) > 0 {
		fmt.Printf("ORPHAN option entries:   %s\n", strings.Join(summary.Orphans, ", "))
	}
	if summary.Failures > 0 {
		fmt.Printf("lookups left pending:    %d\n", summary.Failures)
	}
	return nil
}
