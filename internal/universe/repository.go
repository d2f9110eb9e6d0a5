package universe

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/momo/internal/contracts"
)

// Repository persists index membership. Current membership is replaced
// wholesale on each sync; the change log is append-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a universe repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetMembers returns the stored membership of a cohort, weight descending.
func (r *Repository) GetMembers(ctx context.Context, cohort contracts.Cohort) ([]contracts.Member, error) {
	query := `
		SELECT symbol, name, weight
		FROM momo.universe_members
		WHERE cohort = $1
		ORDER BY weight DESC, symbol ASC
	`

	rows, err := r.pool.Query(ctx, query, string(cohort))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []contracts.Member
	for rows.Next() {
		var m contracts.Member
		if err := rows.Scan(&m.Symbol, &m.Name, &m.Weight); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceMembers swaps the stored membership of a cohort in one
// transaction so readers never observe a half-written universe.
func (r *Repository) ReplaceMembers(ctx context.Context, cohort contracts.Cohort, members []contracts.Member) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM momo.universe_members WHERE cohort = $1`, string(cohort),
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO momo.universe_members (cohort, symbol, name, weight, updated_at)
		VALUES ($1, $2, $3, $4, now())
	`
	for _, m := range members {
		batch.Queue(query, string(cohort), m.Symbol, m.Name, m.Weight)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Change is one membership event: a symbol entering or leaving a cohort.
type Change struct {
	Cohort contracts.Cohort
	Symbol string
	Action string // "added" or "removed"
	Date   time.Time
}

// AppendChanges records membership events. The log is never rewritten.
func (r *Repository) AppendChanges(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO momo.universe_changes (cohort, symbol, action, change_date)
		VALUES ($1, $2, $3, $4)
	`
	for _, c := range changes {
		batch.Queue(query, string(c.Cohort), c.Symbol, c.Action, c.Date)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// RecentChanges returns the latest membership events, newest first.
func (r *Repository) RecentChanges(ctx context.Context, limit int) ([]Change, error) {
	query := `
		SELECT cohort, symbol, action, change_date
		FROM momo.universe_changes
		ORDER BY change_date DESC, symbol ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var cohort string
		if err := rows.Scan(&cohort, &c.Symbol, &c.Action, &c.Date); err != nil {
			return nil, err
		}
		c.Cohort = contracts.Cohort(cohort)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
