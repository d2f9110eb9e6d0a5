package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/logger"
)

// maxBacktrack bounds how many earlier trading days a nominal date may
// resolve to before the lookup is treated as failed.
const maxBacktrack = 5

// barStore is the slice of Repository the service needs.
type barStore interface {
	GetBar(ctx context.Context, ticker string, date time.Time) (*contracts.PriceBar, error)
	GetCloses(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error)
	HasDate(ctx context.Context, date time.Time) (bool, error)
	HasBar(ctx context.Context, ticker string, date time.Time) (bool, error)
	SaveBars(ctx context.Context, bars []contracts.PriceBar) error
}

// marketFetcher is the slice of PolygonClient the service needs.
type marketFetcher interface {
	GroupedDaily(ctx context.Context, date time.Time) ([]contracts.PriceBar, error)
	DailyBar(ctx context.Context, ticker string, date time.Time) (*contracts.PriceBar, error)
	OptionContracts(ctx context.Context, q contracts.ChainQuery) ([]contracts.OptionContract, error)
	OptionDailyClose(ctx context.Context, contractSymbol string, date time.Time) (float64, bool, error)
}

// Service implements contracts.PriceSeriesAccess and
// contracts.OptionChainAccess on top of the bar cache and the Polygon
// client. Writes to the cache happen only here.
type Service struct {
	cfg      *config.Config
	logger   *logger.Logger
	store    barStore
	fetcher  marketFetcher
	calendar *TradingCalendar

	// allowed filters which grouped-daily tickers get cached; empty means
	// cache everything. The benchmark ticker is always kept.
	allowed map[string]bool
}

// NewService creates a market data service.
func NewService(cfg *config.Config, log *logger.Logger, store barStore, fetcher marketFetcher) *Service {
	return &Service{
		cfg:      cfg,
		logger:   log,
		store:    store,
		fetcher:  fetcher,
		calendar: NewTradingCalendar(),
	}
}

// SetUniverse restricts which tickers the grouped fetch caches.
func (s *Service) SetUniverse(tickers []string) {
	allowed := make(map[string]bool, len(tickers)+1)
	for _, t := range tickers {
		allowed[t] = true
	}
	allowed[s.cfg.Tracker.BenchmarkTicker] = true
	s.allowed = allowed
}

// Calendar exposes the trading calendar.
func (s *Service) Calendar() *TradingCalendar {
	return s.calendar
}

// ResolveTargetDates maps a run date to the four holiday-resolved lookup
// dates the ranking pass needs, fetching and caching bars along the way.
func (s *Service) ResolveTargetDates(ctx context.Context, runDate time.Time) (contracts.TargetDates, error) {
	base := runDate.AddDate(0, 0, -1)

	nominal := map[string]time.Time{
		"latest":    base,
		"week_ago":  base.AddDate(0, 0, -7),
		"month_ago": base.AddDate(0, -1, 0),
		"year_ago":  base.AddDate(-1, 0, 0),
	}

	resolved := make(map[string]time.Time, len(nominal))
	for label, target := range nominal {
		actual, err := s.EnsureDate(ctx, target)
		if err != nil {
			return contracts.TargetDates{}, fmt.Errorf("resolve %s (%s): %w", label, target.Format(dateLayout), err)
		}
		if !actual.Equal(target) {
			s.logger.WithFields(map[string]interface{}{
				"label":     label,
				"requested": target.Format(dateLayout),
				"resolved":  actual.Format(dateLayout),
			}).Debug("Target date shifted to earlier trading day")
		}
		resolved[label] = actual
	}

	return contracts.TargetDates{
		Latest:   resolved["latest"],
		WeekAgo:  resolved["week_ago"],
		MonthAgo: resolved["month_ago"],
		YearAgo:  resolved["year_ago"],
	}, nil
}

// EnsureDate resolves a nominal date to the nearest earlier trading day
// with data present in the cache, fetching from the source on a miss.
// Bounded backtracking: after maxBacktrack attempts the lookup fails.
func (s *Service) EnsureDate(ctx context.Context, target time.Time) (time.Time, error) {
	curr := target

	for attempt := 0; attempt <= maxBacktrack; attempt++ {
		curr = s.calendar.PrevTradingDay(curr)

		ok, err := s.EnsureDay(ctx, curr)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return curr, nil
		}

		curr = curr.AddDate(0, 0, -1)
	}

	return time.Time{}, fmt.Errorf("no market data found near %s", target.Format(dateLayout))
}

// EnsureDay makes sure one exact trading day is cached. Returns false when
// the source has no data for that day (not yet published, or a holiday the
// calendar missed), an expected transient condition.
func (s *Service) EnsureDay(ctx context.Context, date time.Time) (bool, error) {
	if !s.calendar.IsTradingDay(date) {
		return false, nil
	}

	have, err := s.store.HasDate(ctx, date)
	if err != nil {
		return false, err
	}

	if !have {
		bars, err := s.fetcher.GroupedDaily(ctx, date)
		if err != nil {
			return false, err
		}
		if len(bars) == 0 {
			return false, nil
		}

		if err := s.store.SaveBars(ctx, s.filterBars(bars)); err != nil {
			return false, err
		}
		s.logger.WithFields(map[string]interface{}{
			"date": date.Format(dateLayout),
			"rows": len(bars),
		}).Info("Cached grouped daily bars")
	}

	if err := s.ensureBenchmark(ctx, date); err != nil {
		return false, err
	}
	return true, nil
}

// ensureBenchmark guarantees the benchmark ticker's bar exists for a date.
// Grouped responses occasionally omit ETFs, so it gets its own fetch.
func (s *Service) ensureBenchmark(ctx context.Context, date time.Time) error {
	benchmark := s.cfg.Tracker.BenchmarkTicker

	have, err := s.store.HasBar(ctx, benchmark, date)
	if err != nil || have {
		return err
	}

	bar, err := s.fetcher.DailyBar(ctx, benchmark, date)
	if err != nil {
		return err
	}
	if bar == nil {
		return nil
	}
	return s.store.SaveBars(ctx, []contracts.PriceBar{*bar})
}

func (s *Service) filterBars(bars []contracts.PriceBar) []contracts.PriceBar {
	if len(s.allowed) == 0 {
		return bars
	}
	kept := bars[:0:0]
	for _, b := range bars {
		if s.allowed[b.Ticker] {
			kept = append(kept, b)
		}
	}
	return kept
}

// GetBar implements contracts.PriceSeriesAccess. Cache first; on a miss a
// single-ticker fetch is attempted and cached.
func (s *Service) GetBar(ctx context.Context, ticker string, date time.Time) (*contracts.PriceBar, error) {
	bar, err := s.store.GetBar(ctx, ticker, date)
	if err != nil || bar != nil {
		return bar, err
	}

	if !s.calendar.IsTradingDay(date) {
		return nil, nil
	}

	bar, err = s.fetcher.DailyBar(ctx, ticker, date)
	if err != nil {
		return nil, err
	}
	if bar == nil {
		return nil, nil
	}
	if err := s.store.SaveBars(ctx, []contracts.PriceBar{*bar}); err != nil {
		return nil, err
	}
	return bar, nil
}

// GetClose implements contracts.PriceSeriesAccess.
func (s *Service) GetClose(ctx context.Context, ticker string, date time.Time) (float64, bool, error) {
	bar, err := s.GetBar(ctx, ticker, date)
	if err != nil {
		return 0, false, err
	}
	if bar == nil {
		return 0, false, nil
	}
	return bar.Close, true, nil
}

// ClosesFor returns cached closes for a set of tickers on one date.
func (s *Service) ClosesFor(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error) {
	return s.store.GetCloses(ctx, tickers, date)
}

// GetChain implements contracts.OptionChainAccess.
func (s *Service) GetChain(ctx context.Context, q contracts.ChainQuery) ([]contracts.OptionContract, error) {
	return s.fetcher.OptionContracts(ctx, q)
}

// GetDailyClose implements contracts.OptionChainAccess.
func (s *Service) GetDailyClose(ctx context.Context, contractSymbol string, date time.Time) (float64, bool, error) {
	return s.fetcher.OptionDailyClose(ctx, contractSymbol, date)
}
