package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/momo/internal/contracts"
)

// presenceThreshold is the minimum number of cached rows for a date to
// count as "market data present". A full grouped fetch lands thousands of
// rows; a handful means only single-ticker backfills happened.
const presenceThreshold = 300

// Repository is the daily bar cache. Rows are written once per
// (ticker, trade_date) and never mutated afterwards.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new bar cache repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBar retrieves the bar for a ticker and date. Returns nil when absent.
func (r *Repository) GetBar(ctx context.Context, ticker string, date time.Time) (*contracts.PriceBar, error) {
	query := `
		SELECT ticker, trade_date, open_price, high_price, low_price, close_price, volume
		FROM momo.daily_prices
		WHERE ticker = $1 AND trade_date = $2
	`

	var b contracts.PriceBar
	err := r.pool.QueryRow(ctx, query, ticker, date).Scan(
		&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetCloses retrieves closes for a set of tickers on one date. Missing
// tickers are simply absent from the map.
func (r *Repository) GetCloses(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error) {
	query := `
		SELECT ticker, close_price
		FROM momo.daily_prices
		WHERE trade_date = $1 AND ticker = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, date, tickers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closes := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var close float64
		if err := rows.Scan(&ticker, &close); err != nil {
			return nil, err
		}
		closes[ticker] = close
	}
	return closes, rows.Err()
}

// HasDate reports whether the cache already holds a full market day.
func (r *Repository) HasDate(ctx context.Context, date time.Time) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM momo.daily_prices WHERE trade_date = $1`, date,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > presenceThreshold, nil
}

// HasBar reports whether a single (ticker, date) bar is cached.
func (r *Repository) HasBar(ctx context.Context, ticker string, date time.Time) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM momo.daily_prices WHERE ticker = $1 AND trade_date = $2`,
		ticker, date,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveBars caches a batch of bars. ON CONFLICT DO NOTHING keeps recorded
// bars immutable.
func (r *Repository) SaveBars(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO momo.daily_prices (ticker, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, trade_date) DO NOTHING
	`
	for _, b := range bars {
		batch.Queue(query, b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	return r.pool.SendBatch(ctx, batch).Close()
}
