package contracts

import (
	"fmt"
	"time"
)

// EntryStatus is the lifecycle state of a ledger entry.
//
//	PENDING_ENTRY → ACTIVE → PENDING_EXIT → CLOSED
//
// PENDING_ENTRY is initial for every new entry. ACTIVE once an entry price
// resolves. PENDING_EXIT once the owning signal drops (or the user marks
// the position for exit). CLOSED once an exit price resolves; terminal.
type EntryStatus string

const (
	StatusPendingEntry EntryStatus = "PENDING_ENTRY"
	StatusActive       EntryStatus = "ACTIVE"
	StatusPendingExit  EntryStatus = "PENDING_EXIT"
	StatusClosed       EntryStatus = "CLOSED"
)

// Open reports whether the entry still reconciles.
func (s EntryStatus) Open() bool {
	return s == StatusPendingEntry || s == StatusActive || s == StatusPendingExit
}

// UserAction values. The field is externally settable and must survive
// reconciliation untouched.
const (
	ActionWatch  = "WATCH"
	ActionBought = "BOUGHT"
	ActionSold   = "SOLD"
)

// StockEntry is the tracked stock position for one signal, keyed by
// (ticker, signal_date). Benchmark prices are captured at each fill for
// alpha computation.
type StockEntry struct {
	Ticker     string    `json:"ticker"`
	Cohort     Cohort    `json:"cohort"`
	SignalDate time.Time `json:"signal_date"`

	DropDate *time.Time `json:"drop_date,omitempty"`

	EntryDate  *time.Time `json:"entry_date,omitempty"`
	EntryPrice *float64   `json:"entry_price,omitempty"`
	ExitDate   *time.Time `json:"exit_date,omitempty"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`

	BenchmarkEntry *float64 `json:"benchmark_entry,omitempty"`
	BenchmarkExit  *float64 `json:"benchmark_exit,omitempty"`

	Status     EntryStatus `json:"status"`
	UserAction string      `json:"user_action"`
	Streak     int         `json:"streak"`
}

// TradeID is the stable identifier linking a stock entry to its option
// shadows.
func (e *StockEntry) TradeID() string {
	return fmt.Sprintf("%s_%s", e.Ticker, e.SignalDate.Format("2006-01-02"))
}

// OptionEntry is one option shadow position, keyed by
// (ticker, signal_date, profile). It references its stock entry by
// identity; an option entry without a matching stock entry is a
// data-integrity error.
type OptionEntry struct {
	Ticker     string    `json:"ticker"`
	SignalDate time.Time `json:"signal_date"`
	Profile    string    `json:"profile"`

	ContractSymbol string     `json:"contract_symbol"`
	Strike         float64    `json:"strike"`
	Expiration     time.Time  `json:"expiration"`
	Type           OptionType `json:"type"`

	EntryDate  *time.Time `json:"entry_date,omitempty"`
	EntryPrice *float64   `json:"entry_price,omitempty"`
	ExitDate   *time.Time `json:"exit_date,omitempty"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`

	Status EntryStatus `json:"status"`
}

// TradeID matches the owning stock entry's identifier.
func (e *OptionEntry) TradeID() string {
	return fmt.Sprintf("%s_%s", e.Ticker, e.SignalDate.Format("2006-01-02"))
}
