package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/momo/internal/contracts"
)

var (
	periodA = time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	periodB = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
)

// closesFor builds a Closes where every ticker shares the latest close and
// differs only in the year-ago close, so score order is explicit.
func closesFor(yearCloses map[string]float64) Closes {
	latest := make(map[string]float64, len(yearCloses))
	for t := range yearCloses {
		latest[t] = 200
	}
	return Closes{Latest: latest, Week: latest, Month: latest, Year: yearCloses}
}

func tickersOf(snaps []contracts.RankSnapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Ticker)
	}
	return out
}

func TestDenseRanksAndTiebreak(t *testing.T) {
	closes := closesFor(map[string]float64{
		"AAA": 100, // +100%
		"BBB": 100, // +100%, tie broken by ticker
		"CCC": 160, // +25%
		"DDD": 400, // -50%
	})

	result := computeRanking(contracts.CohortSP500, periodA,
		[]string{"DDD", "CCC", "BBB", "AAA"}, closes, nil)

	require.Len(t, result.Snapshots, 4)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, tickersOf(result.Snapshots))
	for i, s := range result.Snapshots {
		assert.Equal(t, i+1, s.CurrentRank)
	}
	assert.InDelta(t, 1.0, result.Snapshots[0].Score, 1e-9)
	assert.InDelta(t, -0.5, result.Snapshots[3].Score, 1e-9)
}

func TestOmitsTickersMissingHistory(t *testing.T) {
	closes := Closes{
		Latest: map[string]float64{"AAA": 200, "BBB": 200},
		Year:   map[string]float64{"AAA": 100},
	}

	result := computeRanking(contracts.CohortSP500, periodA,
		[]string{"AAA", "BBB", "NEWIPO"}, closes, nil)

	assert.Len(t, result.Snapshots, 1)
	assert.Equal(t, 2, result.Omitted)
}

func TestNoHistoryMeansAlwaysStable(t *testing.T) {
	closes := closesFor(map[string]float64{"AAA": 100, "BBB": 120, "CCC": 140})

	result := computeRanking(contracts.CohortSP500, periodA,
		[]string{"AAA", "BBB", "CCC"}, closes, nil)

	// First period: everyone has previous rank 0 (+infinity), so the full
	// head of the list is signal-eligible.
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, tickersOf(result.Signals))
	for _, s := range result.Signals {
		assert.Equal(t, 0, s.PreviousRank)
		assert.Equal(t, 1, s.Streak)
		assert.Equal(t, periodA, s.StreakStart)
	}
}

func TestRankStabilityFilter(t *testing.T) {
	// Prior period: NVDA ranked 5, AAPL ranked 2.
	prev := []contracts.RankSnapshot{
		{Ticker: "NVDA", CurrentRank: 5, Streak: 1, StreakStart: periodA},
		{Ticker: "AAPL", CurrentRank: 2, Streak: 1, StreakStart: periodA},
		{Ticker: "MSFT", CurrentRank: 1, Streak: 1, StreakStart: periodA},
	}

	// New period by score order: MSFT(1), AMZN(2), NVDA(3), AAPL(4).
	closes := closesFor(map[string]float64{
		"MSFT": 100, "AMZN": 110, "NVDA": 120, "AAPL": 130,
	})

	result := computeRanking(contracts.CohortSP500, periodB,
		[]string{"MSFT", "AMZN", "NVDA", "AAPL"}, closes, prev)

	// NVDA improved 5 -> 3 and stays. AAPL slipped 2 -> 4 and is excluded,
	// not replaced: the signal list just gets shorter.
	assert.Equal(t, []string{"MSFT", "AMZN", "NVDA"}, tickersOf(result.Signals))

	byTicker := make(map[string]contracts.RankSnapshot)
	for _, s := range result.Snapshots {
		byTicker[s.Ticker] = s
	}
	nvda := byTicker["NVDA"]
	aapl := byTicker["AAPL"]
	assert.True(t, nvda.RankStable())
	assert.False(t, aapl.RankStable())
	assert.Equal(t, 2, nvda.RankChange())

	// AMZN had no prior snapshot: previous rank 0 keeps it eligible.
	assert.Equal(t, 0, byTicker["AMZN"].PreviousRank)
}

func TestStreaksExtendAndReset(t *testing.T) {
	streakOpen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	prev := []contracts.RankSnapshot{
		{Ticker: "MSFT", CurrentRank: 1, Streak: 4, StreakStart: streakOpen},
		{Ticker: "AMZN", CurrentRank: 2, Streak: 0}, // ranked but never a signal
	}

	closes := closesFor(map[string]float64{"MSFT": 100, "AMZN": 110})
	result := computeRanking(contracts.CohortSP500, periodB,
		[]string{"MSFT", "AMZN"}, closes, prev)

	byTicker := make(map[string]contracts.RankSnapshot)
	for _, s := range result.Signals {
		byTicker[s.Ticker] = s
	}

	// Held signal extends with its original start; the newcomer starts fresh.
	assert.Equal(t, 5, byTicker["MSFT"].Streak)
	assert.Equal(t, streakOpen, byTicker["MSFT"].StreakStart)
	assert.Equal(t, 1, byTicker["AMZN"].Streak)
	assert.Equal(t, periodB, byTicker["AMZN"].StreakStart)
}

func TestDroppedSignals(t *testing.T) {
	prev := []contracts.RankSnapshot{
		{Ticker: "INTC", CurrentRank: 3, Streak: 7, StreakStart: periodA},
		{Ticker: "MSFT", CurrentRank: 1, Streak: 2, StreakStart: periodA},
	}

	// INTC falls out of the universe entirely; MSFT holds.
	closes := closesFor(map[string]float64{"MSFT": 100})
	result := computeRanking(contracts.CohortSP500, periodB, []string{"MSFT"}, closes, prev)

	require.Len(t, result.Dropped, 1)
	drop := result.Dropped[0]
	assert.Equal(t, "INTC", drop.Ticker)
	assert.Equal(t, 7, drop.Streak)
	assert.Equal(t, periodB, drop.Period)
}

func TestTopPicksCapped(t *testing.T) {
	year := make(map[string]float64)
	var tickers []string
	for i := 0; i < 30; i++ {
		sym := string(rune('A'+i/26)) + string(rune('A'+i%26))
		year[sym] = 100 + float64(i)
		tickers = append(tickers, sym)
	}

	result := computeRanking(contracts.CohortMidcap, periodA, tickers, closesFor(year), nil)

	assert.Len(t, result.Snapshots, 30)
	assert.Len(t, result.TopPicks, topPicksSize)
	assert.Len(t, result.Signals, signalSize)
}
