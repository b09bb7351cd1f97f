package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		frequency        TEXT NOT NULL DEFAULT 'daily',
		completion_dates TIMESTAMPTZ[] NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id)`,
}

// Timestamps are TEXT in sqliteTimeLayout so that ordering by the column is
// chronological.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		frequency   TEXT NOT NULL DEFAULT 'daily',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id)`,
	`CREATE TABLE IF NOT EXISTS habit_completions (
		habit_id     TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		completed_at TEXT NOT NULL,
		PRIMARY KEY (habit_id, completed_at)
	)`,
}

// Migrate creates the schema for the given dialect. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB, dialect string) error {
	var statements []string
	switch dialect {
	case DialectPostgres:
		statements = postgresSchema
	case DialectSQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("migrate: unknown dialect %q", dialect)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return tx.Commit()
}
