package jobs

import (
	"context"
	"time"

	"github.com/quantfold/momo/internal/marketdata"
	"github.com/quantfold/momo/internal/pipeline"
	"github.com/quantfold/momo/pkg/logger"
)

// WeeklyPipelineJob runs the full weekly cycle every Monday before the
// open. Holiday Mondays are skipped via the trading calendar; the Tuesday
// session then carries the week's data and the next Monday picks it up.
type WeeklyPipelineJob struct {
	pipeline *pipeline.Pipeline
	calendar *marketdata.TradingCalendar
	logger   *logger.Logger
}

// NewWeeklyPipelineJob creates the weekly job.
func NewWeeklyPipelineJob(p *pipeline.Pipeline, cal *marketdata.TradingCalendar, log *logger.Logger) *WeeklyPipelineJob {
	return &WeeklyPipelineJob{pipeline: p, calendar: cal, logger: log}
}

// Name returns the job name.
func (j *WeeklyPipelineJob) Name() string {
	return "weekly-pipeline"
}

// Schedule runs Mondays at 08:30 server time, ahead of the NYSE open.
func (j *WeeklyPipelineJob) Schedule() string {
	return "0 30 8 * * 1"
}

// Run executes the pipeline for today unless the exchange is closed.
func (j *WeeklyPipelineJob) Run(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if !j.calendar.IsTradingDay(today) {
		j.logger.WithField("date", today.Format("2006-01-02")).Info("Exchange closed; skipping weekly pipeline")
		return nil
	}
	return j.pipeline.Run(ctx, today)
}
