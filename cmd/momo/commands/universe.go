package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/momo/internal/contracts"
)

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Sync cohort membership from the index pages",
	RunE:  runUniverseSync,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverseSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.universe.Sync(ctx, time.Now().UTC()); err != nil {
		return err
	}

	for _, cohort := range contracts.AllCohorts() {
		members, err := a.universe.Members(ctx, cohort)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %d members\n", cohort, len(members))
	}
	return nil
}
