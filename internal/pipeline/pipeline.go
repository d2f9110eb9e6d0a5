package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/internal/ledger"
	"github.com/quantfold/momo/internal/marketdata"
	"github.com/quantfold/momo/internal/ranking"
	"github.com/quantfold/momo/internal/report"
	"github.com/quantfold/momo/internal/universe"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/logger"
)

// Pipeline runs one full weekly cycle:
//
//	reconcile → universe sync → date resolution →
//	per-cohort rank/signal/shadow → reconcile → reports
//
// One invocation owns write access to the ledger and snapshot history.
type Pipeline struct {
	cfg        *config.Config
	logger     *logger.Logger
	market     *marketdata.Service
	universe   *universe.Service
	ranking    *ranking.Service
	ledger     *ledger.Service
	reconciler *ledger.Reconciler
	reports    *report.Generator
}

// New wires a pipeline from its stages.
func New(cfg *config.Config, log *logger.Logger, market *marketdata.Service, uni *universe.Service, rank *ranking.Service, led *ledger.Service, rec *ledger.Reconciler, reports *report.Generator) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		logger:     log,
		market:     market,
		universe:   uni,
		ranking:    rank,
		ledger:     led,
		reconciler: rec,
		reports:    reports,
	}
}

// Run executes the full cycle for one run date.
func (p *Pipeline) Run(ctx context.Context, runDate time.Time) error {
	started := time.Now()
	p.logger.WithField("run_date", runDate.Format("2006-01-02")).Info("Pipeline run started")

	// Settle last week's pending fills before anything reads the ledger.
	if _, err := p.reconciler.Run(ctx); err != nil {
		return fmt.Errorf("pre-run reconcile: %w", err)
	}

	if err := p.universe.Sync(ctx, runDate); err != nil {
		return fmt.Errorf("universe sync: %w", err)
	}

	membersByCohort := make(map[contracts.Cohort][]contracts.Member)
	var allTickers []string
	for _, cohort := range contracts.AllCohorts() {
		members, err := p.universe.Members(ctx, cohort)
		if err != nil {
			return fmt.Errorf("load %s members: %w", cohort, err)
		}
		membersByCohort[cohort] = members
		for _, m := range members {
			allTickers = append(allTickers, m.Symbol)
		}
	}
	p.market.SetUniverse(allTickers)

	dates, err := p.market.ResolveTargetDates(ctx, runDate)
	if err != nil {
		return fmt.Errorf("resolve target dates: %w", err)
	}

	var results []*contracts.RankingResult
	for _, cohort := range contracts.AllCohorts() {
		result, err := p.ranking.Run(ctx, cohort, membersByCohort[cohort], dates)
		if err != nil {
			return fmt.Errorf("rank %s: %w", cohort, err)
		}
		results = append(results, result)

		spots, err := p.spotsFor(ctx, result, dates.Latest)
		if err != nil {
			return fmt.Errorf("load %s spots: %w", cohort, err)
		}
		if err := p.ledger.ProcessSignals(ctx, result, spots); err != nil {
			return fmt.Errorf("process %s signals: %w", cohort, err)
		}
	}

	// Fills for brand-new signals land on the next trading day, so this
	// pass mostly settles last week's remainder and new option entries.
	if _, err := p.reconciler.Run(ctx); err != nil {
		return fmt.Errorf("post-run reconcile: %w", err)
	}

	if _, err := p.reports.WriteMomentum(results); err != nil {
		return fmt.Errorf("momentum report: %w", err)
	}
	if _, err := p.reports.WritePerformance(ctx); err != nil {
		return fmt.Errorf("performance report: %w", err)
	}
	if err := p.reports.WriteIndex(); err != nil {
		return fmt.Errorf("site index: %w", err)
	}

	p.logger.WithField("duration", time.Since(started)).Info("Pipeline run complete")
	return nil
}

func (p *Pipeline) spotsFor(ctx context.Context, result *contracts.RankingResult, date time.Time) (map[string]float64, error) {
	tickers := make([]string, 0, len(result.Signals))
	for _, s := range result.Signals {
		tickers = append(tickers, s.Ticker)
	}
	if len(tickers) == 0 {
		return nil, nil
	}
	return p.market.ClosesFor(ctx, tickers, date)
}
