package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

// closesProvider is the slice of the market data service the ranking pass
// needs.
type closesProvider interface {
	ClosesFor(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error)
}

// Service runs weekly ranking passes and persists the snapshots.
type Service struct {
	logger *logger.Logger
	prices closesProvider
	repo   contracts.RankSnapshotRepository
}

// NewService creates a ranking service.
func NewService(log *logger.Logger, prices closesProvider, repo contracts.RankSnapshotRepository) *Service {
	return &Service{logger: log, prices: prices, repo: repo}
}

// Run scores one cohort for the period dates.Latest and persists the
// snapshots. A duplicate period is logged as an integrity warning; the
// computed result is still returned so downstream stages can proceed.
func (s *Service) Run(ctx context.Context, cohort contracts.Cohort, members []contracts.Member, dates contracts.TargetDates) (*contracts.RankingResult, error) {
	tickers := make([]string, 0, len(members))
	for _, m := range members {
		tickers = append(tickers, m.Symbol)
	}

	closes, err := s.loadCloses(ctx, tickers, dates)
	if err != nil {
		return nil, fmt.Errorf("load closes for %s: %w", cohort, err)
	}

	prev, err := s.priorSnapshots(ctx, cohort, dates.Latest)
	if err != nil {
		return nil, fmt.Errorf("load prior snapshots for %s: %w", cohort, err)
	}

	result := computeRanking(cohort, dates.Latest, tickers, closes, prev)

	s.logger.WithFields(map[string]interface{}{
		"cohort":  string(cohort),
		"period":  dates.Latest.Format("2006-01-02"),
		"ranked":  len(result.Snapshots),
		"signals": len(result.Signals),
		"dropped": len(result.Dropped),
		"omitted": result.Omitted,
	}).Info("Ranking pass complete")

	if err := s.repo.SaveSnapshots(ctx, result.Snapshots); err != nil {
		if errors.Is(err, ErrDuplicateSnapshot) {
			s.logger.WithError(err).Warn("Duplicate rank snapshots rejected; history left untouched")
		} else {
			return nil, fmt.Errorf("save snapshots for %s: %w", cohort, err)
		}
	}

	return &result, nil
}

func (s *Service) loadCloses(ctx context.Context, tickers []string, dates contracts.TargetDates) (Closes, error) {
	var c Closes
	var err error

	if c.Latest, err = s.prices.ClosesFor(ctx, tickers, dates.Latest); err != nil {
		return c, err
	}
	if c.Week, err = s.prices.ClosesFor(ctx, tickers, dates.WeekAgo); err != nil {
		return c, err
	}
	if c.Month, err = s.prices.ClosesFor(ctx, tickers, dates.MonthAgo); err != nil {
		return c, err
	}
	if c.Year, err = s.prices.ClosesFor(ctx, tickers, dates.YearAgo); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) priorSnapshots(ctx context.Context, cohort contracts.Cohort, period time.Time) ([]contracts.RankSnapshot, error) {
	prevPeriod, ok, err := s.repo.LatestPeriodBefore(ctx, cohort, period)
	if err != nil || !ok {
		return nil, err
	}
	return s.repo.GetPeriod(ctx, cohort, prevPeriod)
}
