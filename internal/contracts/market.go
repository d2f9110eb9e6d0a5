package contracts

import "time"

// Cohort identifies a stock universe ranked independently.
type Cohort string

const (
	CohortSP500   Cohort = "sp500"
	CohortMidcap  Cohort = "midcap"
	CohortMegacap Cohort = "megacap"
)

// AllCohorts returns every cohort in processing order.
func AllCohorts() []Cohort {
	return []Cohort{CohortMegacap, CohortSP500, CohortMidcap}
}

// Valid reports whether c is a known cohort.
func (c Cohort) Valid() bool {
	switch c {
	case CohortSP500, CohortMidcap, CohortMegacap:
		return true
	}
	return false
}

// PriceBar is one daily OHLC bar. Immutable once recorded for a
// (ticker, date) pair.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Member is one (symbol, weight) row of a cohort's membership list.
type Member struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// TargetDates are the holiday-resolved lookup dates for one weekly run.
// Each is an actual trading day with data present in the bar cache.
type TargetDates struct {
	Latest   time.Time // run date - 1, resolved
	WeekAgo  time.Time
	MonthAgo time.Time
	YearAgo  time.Time
}
