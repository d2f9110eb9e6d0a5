package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/logger"
)

// Reconciler resolves pending entry and exit prices. Every pass is
// idempotent: a price, once recorded, is never overwritten, and user_action
// is never touched.
type Reconciler struct {
	cfg    *config.Config
	logger *logger.Logger
	repo   contracts.LedgerRepository
	prices contracts.PriceSeriesAccess
	chain  contracts.OptionChainAccess
}

// NewReconciler creates a reconciler.
func NewReconciler(cfg *config.Config, log *logger.Logger, repo contracts.LedgerRepository, prices contracts.PriceSeriesAccess, chain contracts.OptionChainAccess) *Reconciler {
	return &Reconciler{cfg: cfg, logger: log, repo: repo, prices: prices, chain: chain}
}

// Summary counts what one reconciliation pass did.
type Summary struct {
	StockEntriesResolved  int
	StockExitsResolved    int
	OptionEntriesResolved int
	OptionExitsResolved   int
	Orphans               []string
	Failures              int
}

// Run reconciles every pending entry with bounded concurrency. An
// individual lookup failure degrades that one entry to still-pending; it
// never aborts the pass.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	var mu sync.Mutex

	stocks, err := r.repo.PendingStockEntries(ctx)
	if err != nil {
		return nil, err
	}

	r.forEach(ctx, len(stocks), func(ctx context.Context, i int) {
		entered, exited, err := r.reconcileStock(ctx, stocks[i])
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failures++
			r.logger.WithError(err).WithField("trade_id", stocks[i].TradeID()).Warn("Stock reconciliation left pending")
			return
		}
		if entered {
			summary.StockEntriesResolved++
		}
		if exited {
			summary.StockExitsResolved++
		}
	})

	opts, err := r.repo.PendingOptionEntries(ctx)
	if err != nil {
		return nil, err
	}

	r.forEach(ctx, len(opts), func(ctx context.Context, i int) {
		entered, exited, orphan, err := r.reconcileOption(ctx, opts[i])
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failures++
			r.logger.WithError(err).WithField("trade_id", opts[i].TradeID()).Warn("Option reconciliation left pending")
			return
		}
		if orphan {
			summary.Orphans = append(summary.Orphans, opts[i].TradeID()+"/"+opts[i].Profile)
			return
		}
		if entered {
			summary.OptionEntriesResolved++
		}
		if exited {
			summary.OptionExitsResolved++
		}
	})

	r.logger.WithFields(map[string]interface{}{
		"stock_entries":  summary.StockEntriesResolved,
		"stock_exits":    summary.StockExitsResolved,
		"option_entries": summary.OptionEntriesResolved,
		"option_exits":   summary.OptionExitsResolved,
		"orphans":        len(summary.Orphans),
		"failures":       summary.Failures,
	}).Info("Reconciliation pass complete")
	return summary, nil
}

// forEach runs fn over n indexes with the configured concurrency bound.
func (r *Reconciler) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	limit := r.cfg.Polygon.Concurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
}

// reconcileStock resolves one stock entry's pending prices.
func (r *Reconciler) reconcileStock(ctx context.Context, e *contracts.StockEntry) (entered, exited bool, err error) {
	if e.Status == contracts.StatusPendingEntry && e.EntryPrice == nil {
		bar, err := r.findFill(ctx, e.Ticker, e.SignalDate)
		if err != nil {
			return false, false, err
		}
		if bar != nil {
			// The entry must precede the drop: a fill landing on or after
			// the drop date means the position was never really held.
			if e.DropDate != nil && !bar.Date.Before(*e.DropDate) {
				e.Status = contracts.StatusClosed
				return false, false, r.repo.UpdateStockEntry(ctx, e)
			}

			price := r.entryPrice(bar)
			e.EntryDate = &bar.Date
			e.EntryPrice = &price
			if e.DropDate != nil {
				e.Status = contracts.StatusPendingExit
			} else {
				e.Status = contracts.StatusActive
			}
			r.recordBenchmark(ctx, bar.Date, &e.BenchmarkEntry, r.entryPrice)

			if err := r.repo.UpdateStockEntry(ctx, e); err != nil {
				return false, false, err
			}
			entered = true
		}
	}

	if e.Status == contracts.StatusActive && e.DropDate != nil {
		// A user marked the position for exit on a still-held signal.
		e.Status = contracts.StatusPendingExit
		if err := r.repo.UpdateStockEntry(ctx, e); err != nil {
			return entered, false, err
		}
	}

	if e.Status == contracts.StatusPendingExit && e.ExitPrice == nil {
		if e.DropDate == nil || e.EntryDate == nil {
			// User-marked exits need a drop_date to anchor the fill.
			return entered, false, nil
		}
		bar, err := r.findFill(ctx, e.Ticker, *e.DropDate)
		if err != nil {
			return entered, false, err
		}
		if bar != nil && bar.Date.After(*e.EntryDate) {
			price := r.exitPrice(bar)
			e.ExitDate = &bar.Date
			e.ExitPrice = &price
			e.Status = contracts.StatusClosed
			r.recordBenchmark(ctx, bar.Date, &e.BenchmarkExit, r.exitPrice)

			if err := r.repo.UpdateStockEntry(ctx, e); err != nil {
				return entered, false, err
			}
			exited = true
		}
	}

	return entered, exited, nil
}

// reconcileOption resolves one option shadow against its stock entry's
// fill dates. An orphan (no stock entry) is reported and skipped, never
// repaired.
func (r *Reconciler) reconcileOption(ctx context.Context, o *contracts.OptionEntry) (entered, exited, orphan bool, err error) {
	stock, err := r.repo.GetStockEntry(ctx, o.Ticker, o.SignalDate)
	if err != nil {
		return false, false, false, err
	}
	if stock == nil {
		r.logger.WithFields(map[string]interface{}{
			"trade_id": o.TradeID(),
			"profile":  o.Profile,
		}).Error("Orphan option entry: no matching stock entry")
		return false, false, true, nil
	}

	if o.Status.Open() && o.EntryPrice == nil && stock.Status == contracts.StatusClosed && stock.EntryDate == nil {
		// The stock drop-terminated without ever filling; the shadow can
		// never enter either.
		o.Status = contracts.StatusClosed
		return false, false, false, r.repo.UpdateOptionEntry(ctx, o)
	}

	if o.Status == contracts.StatusPendingEntry && o.EntryPrice == nil && stock.EntryDate != nil {
		price, ok, err := r.chain.GetDailyClose(ctx, o.ContractSymbol, *stock.EntryDate)
		if err != nil {
			return false, false, false, err
		}
		if ok {
			o.EntryDate = stock.EntryDate
			o.EntryPrice = &price
			o.Status = contracts.StatusActive
			if err := r.repo.UpdateOptionEntry(ctx, o); err != nil {
				return false, false, false, err
			}
			entered = true
		}
	}

	if o.Status.Open() && o.EntryPrice != nil && o.ExitPrice == nil && stock.ExitDate != nil {
		price, ok, err := r.chain.GetDailyClose(ctx, o.ContractSymbol, *stock.ExitDate)
		if err != nil {
			return entered, false, false, err
		}
		if ok {
			o.ExitDate = stock.ExitDate
			o.ExitPrice = &price
			o.Status = contracts.StatusClosed
			if err := r.repo.UpdateOptionEntry(ctx, o); err != nil {
				return entered, false, false, err
			}
			exited = true
		} else if o.Status == contracts.StatusActive {
			// Stock is out; the shadow stops being a live position even if
			// its close is not published yet.
			o.Status = contracts.StatusPendingExit
			if err := r.repo.UpdateOptionEntry(ctx, o); err != nil {
				return entered, false, false, err
			}
		}
	}

	return entered, exited, false, nil
}

// findFill returns the first available bar strictly after base, searching
// at most MaxFillLookahead calendar days. A nil bar means no fill yet.
func (r *Reconciler) findFill(ctx context.Context, ticker string, base time.Time) (*contracts.PriceBar, error) {
	for i := 1; i <= r.cfg.Tracker.MaxFillLookahead; i++ {
		bar, err := r.prices.GetBar(ctx, ticker, base.AddDate(0, 0, i))
		if err != nil {
			return nil, err
		}
		if bar != nil {
			return bar, nil
		}
	}
	return nil, nil
}

// entryPrice applies the fill convention: conservative by default (buy the
// high), open price under "ohlc".
func (r *Reconciler) entryPrice(bar *contracts.PriceBar) float64 {
	if r.cfg.Tracker.FillConvention == config.FillOpenClose {
		return bar.Open
	}
	return bar.High
}

// exitPrice mirrors entryPrice: sell the low by default, close under "ohlc".
func (r *Reconciler) exitPrice(bar *contracts.PriceBar) float64 {
	if r.cfg.Tracker.FillConvention == config.FillOpenClose {
		return bar.Close
	}
	return bar.Low
}

// recordBenchmark captures the benchmark price for a fill date using the
// same convention as the fill itself. Missing benchmark data only costs the
// alpha column, so it is not an error.
func (r *Reconciler) recordBenchmark(ctx context.Context, date time.Time, dst **float64, pick func(*contracts.PriceBar) float64) {
	bar, err := r.prices.GetBar(ctx, r.cfg.Tracker.BenchmarkTicker, date)
	if err != nil || bar == nil {
		if err != nil {
			r.logger.WithError(err).Warn("Benchmark bar lookup failed")
		}
		return
	}
	price := pick(bar)
	*dst = &price
}
