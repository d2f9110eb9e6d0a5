package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/momo/internal/contracts"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store connectivity and ledger summary",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if err := a.db.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	fmt.Println("database: ok")
	if a.redis.Enabled() {
		fmt.Println("redis:    ok (shared rate limiting active)")
	} else {
		fmt.Println("redis:    disabled (per-process rate limiting only)")
	}

	for _, cohort := range contracts.AllCohorts() {
		period, ok, err := a.rankRepo.LatestPeriodBefore(ctx, cohort, time.Now().UTC().AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%-8s no ranking history\n", cohort)
			continue
		}

		picks, err := a.rankRepo.GetTopPicks(ctx, cohort, period)
		if err != nil {
			return err
		}
		open, err := a.ledgerRepo.OpenStockEntries(ctx, cohort)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s period %s, %d signals, %d open entries\n",
			cohort, period.Format("2006-01-02"), len(picks), len(open))
	}
	return nil
}
