package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/momo/internal/contracts"
)

// ErrDuplicateSnapshot marks an insert that collided with an existing
// (cohort, period, ticker) row. History is append-only; the existing row
// always wins.
var ErrDuplicateSnapshot = errors.New("duplicate rank snapshot")

// Repository persists ranking history. Implements
// contracts.RankSnapshotRepository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rank snapshot repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshots appends one period's snapshots. Rows that collide with
// existing history are skipped and reported via ErrDuplicateSnapshot;
// the remaining rows still insert.
func (r *Repository) SaveSnapshots(ctx context.Context, snapshots []contracts.RankSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO momo.rank_snapshots
			(cohort, period, ticker, score, week_return, month_return,
			 current_rank, previous_rank, streak, streak_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cohort, period, ticker) DO NOTHING
	`

	var dupes []string
	for _, s := range snapshots {
		var streakStart interface{}
		if !s.StreakStart.IsZero() {
			streakStart = s.StreakStart
		}
		tag, err := r.pool.Exec(ctx, query,
			string(s.Cohort), s.Period, s.Ticker, s.Score, s.WeekReturn, s.MonthReturn,
			s.CurrentRank, s.PreviousRank, s.Streak, streakStart,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			dupes = append(dupes, s.Ticker)
		}
	}

	if len(dupes) > 0 {
		return fmt.Errorf("%w: %s %s [%s]", ErrDuplicateSnapshot,
			snapshots[0].Cohort, snapshots[0].Period.Format("2006-01-02"),
			strings.Join(dupes, ","))
	}
	return nil
}

// GetPeriod returns all snapshots for a cohort/period, rank ascending.
func (r *Repository) GetPeriod(ctx context.Context, cohort contracts.Cohort, period time.Time) ([]contracts.RankSnapshot, error) {
	query := `
		SELECT cohort, period, ticker, score, week_return, month_return,
		       current_rank, previous_rank, streak, streak_start
		FROM momo.rank_snapshots
		WHERE cohort = $1 AND period = $2
		ORDER BY current_rank ASC
	`
	return r.querySnapshots(ctx, query, string(cohort), period)
}

// LatestPeriodBefore returns the most recent period strictly before the
// given date.
func (r *Repository) LatestPeriodBefore(ctx context.Context, cohort contracts.Cohort, before time.Time) (time.Time, bool, error) {
	var period *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT max(period) FROM momo.rank_snapshots WHERE cohort = $1 AND period < $2`,
		string(cohort), before,
	).Scan(&period)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if period == nil {
		return time.Time{}, false, nil
	}
	return *period, true, nil
}

// GetTopPicks returns the persisted signal rows (streak > 0) for a
// cohort/period in rank order.
func (r *Repository) GetTopPicks(ctx context.Context, cohort contracts.Cohort, period time.Time) ([]contracts.RankSnapshot, error) {
	query := `
		SELECT cohort, period, ticker, score, week_return, month_return,
		       current_rank, previous_rank, streak, streak_start
		FROM momo.rank_snapshots
		WHERE cohort = $1 AND period = $2 AND streak > 0
		ORDER BY current_rank ASC
	`
	return r.querySnapshots(ctx, query, string(cohort), period)
}

func (r *Repository) querySnapshots(ctx context.Context, query string, args ...interface{}) ([]contracts.RankSnapshot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []contracts.RankSnapshot
	for rows.Next() {
		var s contracts.RankSnapshot
		var cohort string
		var streakStart *time.Time
		if err := rows.Scan(
			&cohort, &s.Period, &s.Ticker, &s.Score, &s.WeekReturn, &s.MonthReturn,
			&s.CurrentRank, &s.PreviousRank, &s.Streak, &streakStart,
		); err != nil {
			return nil, err
		}
		s.Cohort = contracts.Cohort(cohort)
		if streakStart != nil {
			s.StreakStart = *streakStart
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
