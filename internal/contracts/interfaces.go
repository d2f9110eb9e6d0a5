package contracts

import (
	"context"
	"time"
)

// PriceSeriesAccess serves daily bars. A nil bar with a nil error means the
// data is not available yet, an expected transient condition rather than a
// failure.
type PriceSeriesAccess interface {
	// GetBar returns the bar for an exact date, or nil when unavailable.
	GetBar(ctx context.Context, ticker string, date time.Time) (*PriceBar, error)

	// GetClose returns the close for an exact date.
	GetClose(ctx context.Context, ticker string, date time.Time) (float64, bool, error)
}

// OptionChainAccess serves listed option contracts and their daily closes.
type OptionChainAccess interface {
	// GetChain returns the contracts currently listed within the query
	// bounds, as observed now ("forward tracking": no historical
	// reconstruction is ever attempted).
	GetChain(ctx context.Context, q ChainQuery) ([]OptionContract, error)

	// GetDailyClose returns a contract's close for a date, or ok=false
	// when unavailable.
	GetDailyClose(ctx context.Context, contractSymbol string, date time.Time) (float64, bool, error)
}

// UniverseProvider serves cohort membership as of the latest sync.
type UniverseProvider interface {
	Members(ctx context.Context, cohort Cohort) ([]Member, error)
}

// RankSnapshotRepository persists append-only ranking history.
type RankSnapshotRepository interface {
	// SaveSnapshots appends one period's snapshots. A duplicate
	// (cohort, period, ticker) is a data-integrity violation surfaced to
	// the caller per row; other rows still insert.
	SaveSnapshots(ctx context.Context, snapshots []RankSnapshot) error

	// GetPeriod returns all snapshots for a cohort/period.
	GetPeriod(ctx context.Context, cohort Cohort, period time.Time) ([]RankSnapshot, error)

	// LatestPeriodBefore returns the most recent period strictly before
	// the given date, ok=false when no history exists.
	LatestPeriodBefore(ctx context.Context, cohort Cohort, before time.Time) (time.Time, bool, error)

	// GetTopPicks returns the persisted pick rows for a cohort/period in
	// rank order.
	GetTopPicks(ctx context.Context, cohort Cohort, period time.Time) ([]RankSnapshot, error)
}

// LedgerRepository persists stock and option ledger entries. Inserts are
// append-only for new signals; updates happen only through reconciliation.
type LedgerRepository interface {
	InsertStockEntry(ctx context.Context, e *StockEntry) error
	InsertOptionEntry(ctx context.Context, e *OptionEntry) error

	UpdateStockEntry(ctx context.Context, e *StockEntry) error
	UpdateOptionEntry(ctx context.Context, e *OptionEntry) error

	// OpenStockEntries returns non-CLOSED stock entries, optionally
	// filtered by cohort ("" = all).
	OpenStockEntries(ctx context.Context, cohort Cohort) ([]*StockEntry, error)

	// PendingStockEntries returns entries in PENDING_ENTRY or PENDING_EXIT.
	PendingStockEntries(ctx context.Context) ([]*StockEntry, error)

	// PendingOptionEntries returns option entries needing resolution.
	PendingOptionEntries(ctx context.Context) ([]*OptionEntry, error)

	GetStockEntry(ctx context.Context, ticker string, signalDate time.Time) (*StockEntry, error)
	OptionEntriesFor(ctx context.Context, ticker string, signalDate time.Time) ([]*OptionEntry, error)

	AllStockEntries(ctx context.Context) ([]*StockEntry, error)
	AllOptionEntries(ctx context.Context) ([]*OptionEntry, error)
}
