package contracts

import "time"

// RankSnapshot is one (cohort, period, ticker) row of ranking history.
// Snapshots are append-only; a correction is a new snapshot for a later
// period, never a rewrite.
type RankSnapshot struct {
	Cohort Cohort    `json:"cohort"`
	Period time.Time `json:"period"`
	Ticker string    `json:"ticker"`

	// Score is the one-year momentum return.
	Score float64 `json:"score"`

	// Context returns for reporting.
	WeekReturn  float64 `json:"week_return"`
	MonthReturn float64 `json:"month_return"`

	// CurrentRank is dense 1..K within the cohort/period.
	// PreviousRank is the ticker's rank in the prior period's snapshot;
	// 0 means no prior snapshot exists (treated as +infinity, always
	// rank-stable).
	CurrentRank  int `json:"current_rank"`
	PreviousRank int `json:"previous_rank"`

	// Streak is the number of consecutive periods the ticker has been a
	// pick, StreakStart the period that opened the streak.
	Streak      int       `json:"streak"`
	StreakStart time.Time `json:"streak_start"`
}

// RankStable reports whether the ticker kept or improved its rank versus
// the prior period. A ticker with no prior snapshot is always stable;
// there is nothing to have been worse than.
func (s *RankSnapshot) RankStable() bool {
	return s.PreviousRank == 0 || s.CurrentRank <= s.PreviousRank
}

// RankChange returns previous minus current (positive is an improvement).
// 0 when no prior snapshot exists.
func (s *RankSnapshot) RankChange() int {
	if s.PreviousRank == 0 {
		return 0
	}
	return s.PreviousRank - s.CurrentRank
}

// DroppedSignal is emitted for a ticker present in the prior period's picks
// but absent from the new ones.
type DroppedSignal struct {
	Cohort Cohort    `json:"cohort"`
	Ticker string    `json:"ticker"`
	Streak int       `json:"streak"` // consecutive periods previously held
	Period time.Time `json:"period"`
}

// RankingResult is the output of one cohort's weekly ranking pass.
type RankingResult struct {
	Cohort Cohort    `json:"cohort"`
	Period time.Time `json:"period"`

	// Snapshots holds every ranked ticker, dense ranks 1..K.
	Snapshots []RankSnapshot `json:"snapshots"`

	// TopPicks are the rank-stable tickers in rank order, capped for
	// reporting. Signals is the actionable head of the same list.
	TopPicks []RankSnapshot `json:"top_picks"`
	Signals  []RankSnapshot `json:"signals"`

	// Dropped are tickers that left the pick list this period.
	Dropped []DroppedSignal `json:"dropped"`

	// Omitted counts tickers excluded for missing price history.
	Omitted int `json:"omitted"`
}
