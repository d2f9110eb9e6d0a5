package report

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

// stubLedger serves a fixed ledger for rendering.
type stubLedger struct {
	stocks  []*contracts.StockEntry
	options []*contracts.OptionEntry
}

func (s *stubLedger) InsertStockEntry(context.Context, *contracts.StockEntry) error   { return nil }
func (s *stubLedger) InsertOptionEntry(context.Context, *contracts.OptionEntry) error { return nil }
func (s *stubLedger) UpdateStockEntry(context.Context, *contracts.StockEntry) error   { return nil }
func (s *stubLedger) UpdateOptionEntry(context.Context, *contracts.OptionEntry) error { return nil }

func (s *stubLedger) OpenStockEntries(_ context.Context, _ contracts.Cohort) ([]*contracts.StockEntry, error) {
	var open []*contracts.StockEntry
	for _, e := range s.stocks {
		if e.Status.Open() {
			open = append(open, e)
		}
	}
	return open, nil
}

func (s *stubLedger) PendingStockEntries(context.Context) ([]*contracts.StockEntry, error) {
	return nil, nil
}

func (s *stubLedger) PendingOptionEntries(context.Context) ([]*contracts.OptionEntry, error) {
	return nil, nil
}

func (s *stubLedger) GetStockEntry(context.Context, string, time.Time) (*contracts.StockEntry, error) {
	return nil, nil
}

func (s *stubLedger) OptionEntriesFor(context.Context, string, time.Time) ([]*contracts.OptionEntry, error) {
	return nil, nil
}

func (s *stubLedger) AllStockEntries(context.Context) ([]*contracts.StockEntry, error) {
	return s.stocks, nil
}

func (s *stubLedger) AllOptionEntries(context.Context) ([]*contracts.OptionEntry, error) {
	return s.options, nil
}

func testGenerator(t *testing.T, repo contracts.LedgerRepository) *Generator {
	t.Helper()
	g, err := NewGenerator(logger.NewWriter(io.Discard, "error"), repo, t.TempDir())
	require.NoError(t, err)
	return g
}

func TestWriteMomentum(t *testing.T) {
	g := testGenerator(t, &stubLedger{})
	period := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	pick := contracts.RankSnapshot{
		Cohort: contracts.CohortMegacap, Period: period, Ticker: "NVDA",
		Score: 0.42, WeekReturn: 0.01, MonthReturn: -0.03,
		CurrentRank: 1, PreviousRank: 2, Streak: 3, StreakStart: period.AddDate(0, 0, -14),
	}
	results := []*contracts.RankingResult{{
		Cohort:   contracts.CohortMegacap,
		Period:   period,
		TopPicks: []contracts.RankSnapshot{pick},
		Signals:  []contracts.RankSnapshot{pick},
		Dropped:  []contracts.DroppedSignal{{Ticker: "INTC", Streak: 7}},
		Omitted:  2,
	}}

	name, err := g.WriteMomentum(results)
	require.NoError(t, err)
	assert.Equal(t, "momentum_2026-08-21.html", name)

	html := readReport(t, g, name)
	assert.Contains(t, html, "NVDA")
	assert.Contains(t, html, "+42.0%")
	assert.Contains(t, html, "INTC")
	assert.Contains(t, html, "2 omitted")
}

func TestWritePerformance(t *testing.T) {
	entryDate := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	exitDate := entryDate.AddDate(0, 0, 30)
	entry, exit := 100.0, 105.0

	repo := &stubLedger{stocks: []*contracts.StockEntry{
		{
			Ticker: "NVDA", Cohort: contracts.CohortMegacap, SignalDate: entryDate,
			Status: contracts.StatusClosed, UserAction: contracts.ActionBought,
			EntryDate: &entryDate, EntryPrice: &entry, ExitDate: &exitDate, ExitPrice: &exit,
		},
		{
			Ticker: "MSFT", Cohort: contracts.CohortMegacap, SignalDate: exitDate,
			Status: contracts.StatusActive, UserAction: contracts.ActionWatch,
			EntryDate: &exitDate, EntryPrice: &entry,
		},
	}}

	g := testGenerator(t, repo)
	name, err := g.WritePerformance(context.Background())
	require.NoError(t, err)

	html := readReport(t, g, name)
	assert.Contains(t, html, "BOUGHT")
	assert.Contains(t, html, "MSFT", "active position listed")
	assert.Contains(t, html, "1 active, 1 closed")
}

func TestWriteIndexOrdering(t *testing.T) {
	g := testGenerator(t, &stubLedger{})

	for _, name := range []string{
		"momentum_2026-08-14.html", "momentum_2026-08-21.html", "performance_2026-08-21.html",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(g.outDir, name), []byte("x"), 0o644))
	}

	require.NoError(t, g.WriteIndex())
	html := readReport(t, g, "index.html")

	newest := strings.Index(html, "momentum_2026-08-21.html")
	older := strings.Index(html, "momentum_2026-08-14.html")
	require.Greater(t, newest, 0)
	assert.Less(t, newest, older, "latest report listed first")
	assert.Contains(t, html, "performance_2026-08-21.html")
}

func readReport(t *testing.T, g *Generator, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(g.outDir, name))
	require.NoError(t, err)
	return string(b)
}
