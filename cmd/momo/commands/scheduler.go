package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantfold/momo/internal/scheduler"
	"github.com/quantfold/momo/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the weekly pipeline on its cron schedule",
	Long: `Starts the scheduler and blocks. The weekly-pipeline job fires
Monday mornings before the open and skips exchange holidays.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.log)
	weekly := jobs.NewWeeklyPipelineJob(a.pipeline, a.market.Calendar(), a.log)
	if err := sched.AddJob(weekly); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return nil
}
