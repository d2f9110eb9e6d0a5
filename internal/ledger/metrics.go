package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/quantfold/momo/internal/contracts"
)

// AnnualizedLogReturn is ln(exit/entry) scaled to a year. Holding days are
// clipped to at least one so a same-week round trip stays finite.
func AnnualizedLogReturn(entry, exit float64, entryDate, exitDate time.Time) float64 {
	days := exitDate.Sub(entryDate).Hours() / 24
	if days < 1 {
		days = 1
	}
	return math.Log(exit/entry) * (365 / days)
}

// StockGroup aggregates measurable stock entries sharing a cohort and
// user action.
type StockGroup struct {
	Cohort     contracts.Cohort `json:"cohort"`
	UserAction string           `json:"user_action"`
	Count      int              `json:"count"`
	AvgReturn  float64          `json:"avg_return"`

	// AvgAlpha averages return minus benchmark return over the same
	// windows; only entries with both benchmark fills contribute.
	AvgAlpha   float64 `json:"avg_alpha"`
	AlphaCount int     `json:"alpha_count"`
}

// OptionGroup aggregates measurable option shadows sharing a cohort, user
// action and strategy profile. Cohort and user action come from the owning
// stock entry.
type OptionGroup struct {
	Cohort     contracts.Cohort `json:"cohort"`
	UserAction string           `json:"user_action"`
	Profile    string           `json:"profile"`
	Count      int              `json:"count"`
	AvgReturn  float64          `json:"avg_return"`
}

// Performance is the aggregate view of the ledger.
type Performance struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Stocks      []StockGroup  `json:"stocks"`
	Options     []OptionGroup `json:"options"`

	ActiveStocks int `json:"active_stocks"`
	ClosedStocks int `json:"closed_stocks"`
	Orphans      int `json:"orphans"`
}

// measurable reports whether an entry window yields a valid return.
// Both prices must be resolved and the exit must follow the entry.
func measurable(entryPrice, exitPrice *float64, entryDate, exitDate *time.Time) bool {
	return entryPrice != nil && exitPrice != nil &&
		entryDate != nil && exitDate != nil &&
		*entryPrice > 0 && *exitPrice > 0 &&
		exitDate.After(*entryDate)
}

// ComputePerformance aggregates the full ledger. Read-only.
func ComputePerformance(ctx context.Context, repo contracts.LedgerRepository) (*Performance, error) {
	stocks, err := repo.AllStockEntries(ctx)
	if err != nil {
		return nil, err
	}
	options, err := repo.AllOptionEntries(ctx)
	if err != nil {
		return nil, err
	}

	perf := &Performance{GeneratedAt: time.Now().UTC()}

	stockByID := make(map[string]*contracts.StockEntry, len(stocks))
	type stockKey struct {
		cohort contracts.Cohort
		action string
	}
	stockGroups := make(map[stockKey]*StockGroup)

	for _, e := range stocks {
		stockByID[e.TradeID()] = e

		switch e.Status {
		case contracts.StatusActive, contracts.StatusPendingExit:
			perf.ActiveStocks++
		case contracts.StatusClosed:
			perf.ClosedStocks++
		}

		if !measurable(e.EntryPrice, e.ExitPrice, e.EntryDate, e.ExitDate) {
			continue
		}

		k := stockKey{e.Cohort, e.UserAction}
		g := stockGroups[k]
		if g == nil {
			g = &StockGroup{Cohort: e.Cohort, UserAction: e.UserAction}
			stockGroups[k] = g
		}

		ret := AnnualizedLogReturn(*e.EntryPrice, *e.ExitPrice, *e.EntryDate, *e.ExitDate)
		g.AvgReturn += ret
		g.Count++

		if e.BenchmarkEntry != nil && e.BenchmarkExit != nil && *e.BenchmarkEntry > 0 {
			bench := AnnualizedLogReturn(*e.BenchmarkEntry, *e.BenchmarkExit, *e.EntryDate, *e.ExitDate)
			g.AvgAlpha += ret - bench
			g.AlphaCount++
		}
	}

	type optionKey struct {
		cohort  contracts.Cohort
		action  string
		profile string
	}
	optionGroups := make(map[optionKey]*OptionGroup)

	for _, o := range options {
		stock := stockByID[o.TradeID()]
		if stock == nil {
			perf.Orphans++
			continue
		}
		if !measurable(o.EntryPrice, o.ExitPrice, o.EntryDate, o.ExitDate) {
			continue
		}

		k := optionKey{stock.Cohort, stock.UserAction, o.Profile}
		g := optionGroups[k]
		if g == nil {
			g = &OptionGroup{Cohort: stock.Cohort, UserAction: stock.UserAction, Profile: o.Profile}
			optionGroups[k] = g
		}
		g.AvgReturn += AnnualizedLogReturn(*o.EntryPrice, *o.ExitPrice, *o.EntryDate, *o.ExitDate)
		g.Count++
	}

	for _, g := range stockGroups {
		g.AvgReturn /= float64(g.Count)
		if g.AlphaCount > 0 {
			g.AvgAlpha /= float64(g.AlphaCount)
		}
		perf.Stocks = append(perf.Stocks, *g)
	}
	for _, g := range optionGroups {
		g.AvgReturn /= float64(g.Count)
		perf.Options = append(perf.Options, *g)
	}

	sort.Slice(perf.Stocks, func(i, j int) bool {
		if perf.Stocks[i].Cohort != perf.Stocks[j].Cohort {
			return perf.Stocks[i].Cohort < perf.Stocks[j].Cohort
		}
		return perf.Stocks[i].UserAction < perf.Stocks[j].UserAction
	})
	sort.Slice(perf.Options, func(i, j int) bool {
		a, b := perf.Options[i], perf.Options[j]
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.UserAction != b.UserAction {
			return a.UserAction < b.UserAction
		}
		return a.Profile < b.Profile
	})

	return perf, nil
}
