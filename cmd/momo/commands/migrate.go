package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Creates the momo schema and its tables if they do not exist.
Safe to re-run; existing tables and data are left untouched.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// Schema notes: daily_prices and rank_snapshots are append-only caches and
// history; stock/option entries are mutated only by reconciliation.
var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS momo`,

	`CREATE TABLE IF NOT EXISTS momo.daily_prices (
		ticker      text        NOT NULL,
		trade_date  date        NOT NULL,
		open_price  float8      NOT NULL,
		high_price  float8      NOT NULL,
		low_price   float8      NOT NULL,
		close_price float8      NOT NULL,
		volume      bigint      NOT NULL DEFAULT 0,
		PRIMARY KEY (ticker, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS momo.universe_members (
		cohort     text        NOT NULL,
		symbol     text        NOT NULL,
		name       text        NOT NULL DEFAULT '',
		weight     float8      NOT NULL DEFAULT 0,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (cohort, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS momo.universe_changes (
		id          bigserial   PRIMARY KEY,
		cohort      text        NOT NULL,
		symbol      text        NOT NULL,
		action      text        NOT NULL,
		change_date date        NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS momo.rank_snapshots (
		cohort        text   NOT NULL,
		period        date   NOT NULL,
		ticker        text   NOT NULL,
		score         float8 NOT NULL,
		week_return   float8 NOT NULL DEFAULT 0,
		month_return  float8 NOT NULL DEFAULT 0,
		current_rank  int    NOT NULL,
		previous_rank int    NOT NULL DEFAULT 0,
		streak        int    NOT NULL DEFAULT 0,
		streak_start  date,
		PRIMARY KEY (cohort, period, ticker)
	)`,

	`CREATE TABLE IF NOT EXISTS momo.stock_entries (
		ticker          text   NOT NULL,
		cohort          text   NOT NULL,
		signal_date     date   NOT NULL,
		drop_date       date,
		entry_date      date,
		entry_price     float8,
		exit_date       date,
		exit_price      float8,
		benchmark_entry float8,
		benchmark_exit  float8,
		status          text   NOT NULL DEFAULT 'PENDING_ENTRY',
		user_action     text   NOT NULL DEFAULT 'WATCH',
		streak          int    NOT NULL DEFAULT 0,
		PRIMARY KEY (ticker, signal_date)
	)`,

	`CREATE TABLE IF NOT EXISTS momo.option_entries (
		ticker          text   NOT NULL,
		signal_date     date   NOT NULL,
		profile         text   NOT NULL,
		contract_symbol text   NOT NULL,
		strike          float8 NOT NULL,
		expiration      date   NOT NULL,
		option_type     text   NOT NULL,
		entry_date      date,
		entry_price     float8,
		exit_date       date,
		exit_price      float8,
		status          text   NOT NULL DEFAULT 'PENDING_ENTRY',
		PRIMARY KEY (ticker, signal_date, profile)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_stock_entries_status ON momo.stock_entries (status)`,
	`CREATE INDEX IF NOT EXISTS idx_option_entries_status ON momo.option_entries (status)`,
	`CREATE INDEX IF NOT EXISTS idx_rank_snapshots_period ON momo.rank_snapshots (cohort, period)`,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	for _, stmt := range migrations {
		if _, err := a.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	a.log.Info("Schema migration complete")
	fmt.Println("momo schema is up to date")
	return nil
}
