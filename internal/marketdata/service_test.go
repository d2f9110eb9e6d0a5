package marketdata

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/logger"
)

type fakeStore struct {
	bars map[string]map[string]contracts.PriceBar // ticker -> date -> bar
}

func newFakeStore() *fakeStore {
	return &fakeStore{bars: make(map[string]map[string]contracts.PriceBar)}
}

func (f *fakeStore) key(d time.Time) string { return d.Format("2006-01-02") }

func (f *fakeStore) GetBar(_ context.Context, ticker string, date time.Time) (*contracts.PriceBar, error) {
	if b, ok := f.bars[ticker][f.key(date)]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeStore) GetCloses(_ context.Context, tickers []string, date time.Time) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, t := range tickers {
		if b, ok := f.bars[t][f.key(date)]; ok {
			out[t] = b.Close
		}
	}
	return out, nil
}

func (f *fakeStore) HasDate(_ context.Context, date time.Time) (bool, error) {
	count := 0
	for _, byDate := range f.bars {
		if _, ok := byDate[f.key(date)]; ok {
			count++
		}
	}
	return count > presenceThreshold, nil
}

func (f *fakeStore) HasBar(_ context.Context, ticker string, date time.Time) (bool, error) {
	_, ok := f.bars[ticker][f.key(date)]
	return ok, nil
}

func (f *fakeStore) SaveBars(_ context.Context, bars []contracts.PriceBar) error {
	for _, b := range bars {
		if f.bars[b.Ticker] == nil {
			f.bars[b.Ticker] = make(map[string]contracts.PriceBar)
		}
		// Write once, never overwrite
		if _, ok := f.bars[b.Ticker][f.key(b.Date)]; !ok {
			f.bars[b.Ticker][f.key(b.Date)] = b
		}
	}
	return nil
}

type fakeFetcher struct {
	groupedDays  map[string][]contracts.PriceBar
	singleBars   map[string]map[string]contracts.PriceBar
	groupedCalls int
}

func (f *fakeFetcher) GroupedDaily(_ context.Context, date time.Time) ([]contracts.PriceBar, error) {
	f.groupedCalls++
	return f.groupedDays[date.Format("2006-01-02")], nil
}

func (f *fakeFetcher) DailyBar(_ context.Context, ticker string, date time.Time) (*contracts.PriceBar, error) {
	if b, ok := f.singleBars[ticker][date.Format("2006-01-02")]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeFetcher) OptionContracts(_ context.Context, _ contracts.ChainQuery) ([]contracts.OptionContract, error) {
	return nil, nil
}

func (f *fakeFetcher) OptionDailyClose(_ context.Context, _ string, _ time.Time) (float64, bool, error) {
	return 0, false, nil
}

func fullDay(date time.Time) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, 0, presenceThreshold+10)
	for i := 0; i < presenceThreshold+10; i++ {
		bars = append(bars, contracts.PriceBar{
			Ticker: string(rune('A'+i%26)) + string(rune('A'+(i/26)%26)) + string(rune('A'+i/676)),
			Date:   date,
			Close:  100,
		})
	}
	return bars
}

func testService(store *fakeStore, fetcher *fakeFetcher) *Service {
	cfg := &config.Config{}
	cfg.Tracker.BenchmarkTicker = "VOO"
	return NewService(cfg, logger.NewWriter(io.Discard, "error"), store, fetcher)
}

func TestCalendar(t *testing.T) {
	cal := NewTradingCalendar()

	// 2026-08-21 is a Friday, 2026-08-22 a Saturday.
	assert.True(t, cal.IsTradingDay(time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cal.IsTradingDay(time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)))

	// New Year's Day
	assert.False(t, cal.IsTradingDay(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Sunday resolves back to Friday
	sunday := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	prev := cal.PrevTradingDay(sunday)
	assert.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), prev)
}

func TestEnsureDateWeekendBacktrack(t *testing.T) {
	store := newFakeStore()
	friday := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		groupedDays: map[string][]contracts.PriceBar{
			"2026-08-21": fullDay(friday),
		},
		singleBars: map[string]map[string]contracts.PriceBar{
			"VOO": {"2026-08-21": {Ticker: "VOO", Date: friday, Close: 450}},
		},
	}
	svc := testService(store, fetcher)

	// Requesting Sunday resolves to Friday and caches the day.
	got, err := svc.EnsureDate(context.Background(), time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, friday, got)
	assert.Equal(t, 1, fetcher.groupedCalls)

	// Benchmark bar is guaranteed alongside the grouped fetch.
	hasVOO, _ := store.HasBar(context.Background(), "VOO", friday)
	assert.True(t, hasVOO)

	// Second resolve hits the cache; no new fetch.
	_, err = svc.EnsureDate(context.Background(), time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.groupedCalls)
}

func TestEnsureDateBoundedBacktrack(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{groupedDays: map[string][]contracts.PriceBar{}}
	svc := testService(store, fetcher)

	_, err := svc.EnsureDate(context.Background(), time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err, "empty source must fail after bounded attempts")
	assert.LessOrEqual(t, fetcher.groupedCalls, maxBacktrack+1)
}

func TestEnsureDayNonTradingDay(t *testing.T) {
	svc := testService(newFakeStore(), &fakeFetcher{})

	ok, err := svc.EnsureDay(context.Background(), time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok, "Saturday is never fillable")
}

func TestGetBarFallbackFetch(t *testing.T) {
	store := newFakeStore()
	friday := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		singleBars: map[string]map[string]contracts.PriceBar{
			"NVDA": {"2026-08-21": {Ticker: "NVDA", Date: friday, Close: 190, High: 195, Low: 188}},
		},
	}
	svc := testService(store, fetcher)

	bar, err := svc.GetBar(context.Background(), "NVDA", friday)
	require.NoError(t, err)
	require.NotNil(t, bar)
	assert.Equal(t, 190.0, bar.Close)

	// Now cached
	has, _ := store.HasBar(context.Background(), "NVDA", friday)
	assert.True(t, has)

	// Unavailable ticker: nil bar, nil error (transient, not a failure)
	bar, err = svc.GetBar(context.Background(), "ZZZT", friday)
	require.NoError(t, err)
	assert.Nil(t, bar)
}

func TestUniverseFilter(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{}
	svc := testService(store, fetcher)
	svc.SetUniverse([]string{"AAPL", "NVDA"})

	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	bars := []contracts.PriceBar{
		{Ticker: "AAPL", Date: date},
		{Ticker: "JUNK", Date: date},
		{Ticker: "VOO", Date: date},
	}

	kept := svc.filterBars(bars)
	require.Len(t, kept, 2)
	assert.Equal(t, "AAPL", kept[0].Ticker)
	assert.Equal(t, "VOO", kept[1].Ticker, "benchmark always cached")
}
