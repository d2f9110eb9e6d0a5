package ranking

import (
	"sort"
	"time"

	"github.com/quantfold/momo/internal/contracts"
)

const (
	// topPicksSize caps the reported pick list; signalSize is the
	// actionable head of it that flows into the ledger.
	topPicksSize = 10
	signalSize   = 5
)

// Closes holds per-ticker closing prices for the four lookup dates of one
// ranking pass. A ticker absent from Latest or Year cannot be scored.
type Closes struct {
	Latest map[string]float64
	Week   map[string]float64
	Month  map[string]float64
	Year   map[string]float64
}

// computeRanking scores one cohort for one period.
//
// Score is the one-year return (close_now - close_1y) / close_1y. Tickers
// missing either endpoint are omitted, counted on the result. Ranks are
// dense 1..K, score descending, ties broken by ticker ascending.
//
// The signal set is the first signalSize rank-stable tickers in rank
// order. It is never backfilled: a ticker whose rank slipped leaves a
// shorter signal list rather than promoting the next name.
func computeRanking(cohort contracts.Cohort, period time.Time, tickers []string, closes Closes, prev []contracts.RankSnapshot) contracts.RankingResult {
	prevByTicker := make(map[string]contracts.RankSnapshot, len(prev))
	for _, s := range prev {
		prevByTicker[s.Ticker] = s
	}

	result := contracts.RankingResult{Cohort: cohort, Period: period}

	snapshots := make([]contracts.RankSnapshot, 0, len(tickers))
	for _, ticker := range tickers {
		now, okNow := closes.Latest[ticker]
		then, okThen := closes.Year[ticker]
		if !okNow || !okThen || then == 0 {
			result.Omitted++
			continue
		}

		s := contracts.RankSnapshot{
			Cohort: cohort,
			Period: period,
			Ticker: ticker,
			Score:  (now - then) / then,
		}
		if w, ok := closes.Week[ticker]; ok && w != 0 {
			s.WeekReturn = (now - w) / w
		}
		if m, ok := closes.Month[ticker]; ok && m != 0 {
			s.MonthReturn = (now - m) / m
		}
		if p, ok := prevByTicker[ticker]; ok {
			s.PreviousRank = p.CurrentRank
		}
		snapshots = append(snapshots, s)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Score != snapshots[j].Score {
			return snapshots[i].Score > snapshots[j].Score
		}
		return snapshots[i].Ticker < snapshots[j].Ticker
	})
	for i := range snapshots {
		snapshots[i].CurrentRank = i + 1
	}

	// Rank-stable tickers in rank order, capped for reporting.
	var stable []int
	for i := range snapshots {
		if snapshots[i].RankStable() {
			stable = append(stable, i)
			if len(stable) == topPicksSize {
				break
			}
		}
	}

	signalSet := make(map[string]bool, signalSize)
	for n, idx := range stable {
		if n < signalSize {
			signalSet[snapshots[idx].Ticker] = true
		}
	}

	// Streaks live on signal membership. A held signal extends its streak
	// and keeps the period that opened it; a new one starts at 1.
	for i := range snapshots {
		s := &snapshots[i]
		if !signalSet[s.Ticker] {
			continue
		}
		if p, ok := prevByTicker[s.Ticker]; ok && p.Streak > 0 {
			s.Streak = p.Streak + 1
			s.StreakStart = p.StreakStart
		} else {
			s.Streak = 1
			s.StreakStart = period
		}
	}

	for _, idx := range stable {
		result.TopPicks = append(result.TopPicks, snapshots[idx])
		if signalSet[snapshots[idx].Ticker] {
			result.Signals = append(result.Signals, snapshots[idx])
		}
	}

	// A prior signal missing from the new set is a drop event.
	for _, p := range prev {
		if p.Streak > 0 && !signalSet[p.Ticker] {
			result.Dropped = append(result.Dropped, contracts.DroppedSignal{
				Cohort: cohort,
				Ticker: p.Ticker,
				Streak: p.Streak,
				Period: period,
			})
		}
	}
	sort.Slice(result.Dropped, func(i, j int) bool {
		return result.Dropped[i].Ticker < result.Dropped[j].Ticker
	})

	result.Snapshots = snapshots
	return result
}
