package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/momo/internal/contracts"
)

// Repository persists the dual position ledger. Implements
// contracts.LedgerRepository. Inserts are append-only; rows change only
// through the reconciliation rules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const stockColumns = `
	ticker, cohort, signal_date, drop_date,
	entry_date, entry_price, exit_date, exit_price,
	benchmark_entry, benchmark_exit,
	status, user_action, streak
`

// InsertStockEntry appends a new stock entry. An existing
// (ticker, signal_date) row is left untouched.
func (r *Repository) InsertStockEntry(ctx context.Context, e *contracts.StockEntry) error {
	query := `
		INSERT INTO momo.stock_entries (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticker, signal_date) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		e.Ticker, string(e.Cohort), e.SignalDate, e.DropDate,
		e.EntryDate, e.EntryPrice, e.ExitDate, e.ExitPrice,
		e.BenchmarkEntry, e.BenchmarkExit,
		string(e.Status), e.UserAction, e.Streak,
	)
	return err
}

// UpdateStockEntry writes reconciliation results back. user_action is
// deliberately not in the SET list: it belongs to the user.
func (r *Repository) UpdateStockEntry(ctx context.Context, e *contracts.StockEntry) error {
	query := `
		UPDATE momo.stock_entries
		SET drop_date = $3, entry_date = $4, entry_price = $5,
		    exit_date = $6, exit_price = $7,
		    benchmark_entry = $8, benchmark_exit = $9,
		    status = $10, streak = $11
		WHERE ticker = $1 AND signal_date = $2
	`
	_, err := r.pool.Exec(ctx, query,
		e.Ticker, e.SignalDate, e.DropDate,
		e.EntryDate, e.EntryPrice, e.ExitDate, e.ExitPrice,
		e.BenchmarkEntry, e.BenchmarkExit,
		string(e.Status), e.Streak,
	)
	return err
}

const optionColumns = `
	ticker, signal_date, profile,
	contract_symbol, strike, expiration, option_type,
	entry_date, entry_price, exit_date, exit_price, status
`

// InsertOptionEntry appends a new option shadow entry.
func (r *Repository) InsertOptionEntry(ctx context.Context, e *contracts.OptionEntry) error {
	query := `
		INSERT INTO momo.option_entries (` + optionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ticker, signal_date, profile) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		e.Ticker, e.SignalDate, e.Profile,
		e.ContractSymbol, e.Strike, e.Expiration, string(e.Type),
		e.EntryDate, e.EntryPrice, e.ExitDate, e.ExitPrice, string(e.Status),
	)
	return err
}

// UpdateOptionEntry writes reconciliation results back.
func (r *Repository) UpdateOptionEntry(ctx context.Context, e *contracts.OptionEntry) error {
	query := `
		UPDATE momo.option_entries
		SET entry_date = $4, entry_price = $5,
		    exit_date = $6, exit_price = $7, status = $8
		WHERE ticker = $1 AND signal_date = $2 AND profile = $3
	`
	_, err := r.pool.Exec(ctx, query,
		e.Ticker, e.SignalDate, e.Profile,
		e.EntryDate, e.EntryPrice, e.ExitDate, e.ExitPrice, string(e.Status),
	)
	return err
}

// OpenStockEntries returns non-CLOSED stock entries, optionally filtered
// by cohort ("" = all).
func (r *Repository) OpenStockEntries(ctx context.Context, cohort contracts.Cohort) ([]*contracts.StockEntry, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM momo.stock_entries
		WHERE status != 'CLOSED' AND ($1 = '' OR cohort = $1)
		ORDER BY signal_date ASC, ticker ASC
	`
	return r.queryStocks(ctx, query, string(cohort))
}

// PendingStockEntries returns stock entries awaiting a price resolution.
// ACTIVE rows with a drop date count: the user marked them for exit.
func (r *Repository) PendingStockEntries(ctx context.Context) ([]*contracts.StockEntry, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM momo.stock_entries
		WHERE status IN ('PENDING_ENTRY', 'PENDING_EXIT')
		   OR (status = 'ACTIVE' AND drop_date IS NOT NULL)
		ORDER BY signal_date ASC, ticker ASC
	`
	return r.queryStocks(ctx, query)
}

// PendingOptionEntries returns option entries still reconciling.
func (r *Repository) PendingOptionEntries(ctx context.Context) ([]*contracts.OptionEntry, error) {
	query := `
		SELECT ` + optionColumns + `
		FROM momo.option_entries
		WHERE status != 'CLOSED'
		ORDER BY signal_date ASC, ticker ASC, profile ASC
	`
	return r.queryOptions(ctx, query)
}

// GetStockEntry returns one entry, nil when absent.
func (r *Repository) GetStockEntry(ctx context.Context, ticker string, signalDate time.Time) (*contracts.StockEntry, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM momo.stock_entries
		WHERE ticker = $1 AND signal_date = $2
	`
	entries, err := r.queryStocks(ctx, query, ticker, signalDate)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

// OptionEntriesFor returns the option shadows of one stock entry.
func (r *Repository) OptionEntriesFor(ctx context.Context, ticker string, signalDate time.Time) ([]*contracts.OptionEntry, error) {
	query := `
		SELECT ` + optionColumns + `
		FROM momo.option_entries
		WHERE ticker = $1 AND signal_date = $2
		ORDER BY profile ASC
	`
	return r.queryOptions(ctx, query, ticker, signalDate)
}

// AllStockEntries returns the full stock ledger.
func (r *Repository) AllStockEntries(ctx context.Context) ([]*contracts.StockEntry, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM momo.stock_entries
		ORDER BY signal_date DESC, ticker ASC
	`
	return r.queryStocks(ctx, query)
}

// AllOptionEntries returns the full option ledger.
func (r *Repository) AllOptionEntries(ctx context.Context) ([]*contracts.OptionEntry, error) {
	query := `
		SELECT ` + optionColumns + `
		FROM momo.option_entries
		ORDER BY signal_date DESC, ticker ASC, profile ASC
	`
	return r.queryOptions(ctx, query)
}

func (r *Repository) queryStocks(ctx context.Context, query string, args ...interface{}) ([]*contracts.StockEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var entries []*contracts.StockEntry
	for rows.Next() {
		var e contracts.StockEntry
		var cohort, status string
		if err := rows.Scan(
			&e.Ticker, &cohort, &e.SignalDate, &e.DropDate,
			&e.EntryDate, &e.EntryPrice, &e.ExitDate, &e.ExitPrice,
			&e.BenchmarkEntry, &e.BenchmarkExit,
			&status, &e.UserAction, &e.Streak,
		); err != nil {
			return nil, err
		}
		e.Cohort = contracts.Cohort(cohort)
		e.Status = contracts.EntryStatus(status)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *Repository) queryOptions(ctx context.Context, query string, args ...interface{}) ([]*contracts.OptionEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var entries []*contracts.OptionEntry
	for rows.Next() {
		var e contracts.OptionEntry
		var optType, status string
		if err := rows.Scan(
			&e.Ticker, &e.SignalDate, &e.Profile,
			&e.ContractSymbol, &e.Strike, &e.Expiration, &optType,
			&e.EntryDate, &e.EntryPrice, &e.ExitDate, &e.ExitPrice, &status,
		); err != nil {
			return nil, err
		}
		e.Type = contracts.OptionType(optType)
		e.Status = contracts.EntryStatus(status)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
