package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DBTX is the slice of database/sql the stores query through. Both *sql.DB
// and *sql.Tx satisfy it, so a store can be rebound to a transaction when a
// whole file must commit or roll back as one unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewDB opens a PostgreSQL connection pool and verifies it.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// migrations is the full schema. Every statement is idempotent so Migrate
// can run on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS deputies (
		id SERIAL PRIMARY KEY,
		normalized_name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		party TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id SERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		legislature TEXT NOT NULL,
		number TEXT NOT NULL,
		kind TEXT NOT NULL,
		session_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id SERIAL PRIMARY KEY,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		deputy_id INTEGER NOT NULL REFERENCES deputies(id),
		party TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		UNIQUE (session_id, deputy_id)
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id SERIAL PRIMARY KEY,
		deputy_id INTEGER NOT NULL REFERENCES deputies(id),
		kind TEXT NOT NULL,
		legislature TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL DEFAULT 0,
		last_date DATE,
		details TEXT,
		UNIQUE (deputy_id, kind, legislature)
	)`,
	`CREATE TABLE IF NOT EXISTS agenda_items (
		id SERIAL PRIMARY KEY,
		external_id BIGINT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		theme TEXT,
		section TEXT,
		organizer TEXT,
		venue TEXT,
		legislature TEXT,
		parliament_group TEXT,
		link TEXT,
		starts_at TIMESTAMP,
		ends_at TIMESTAMP,
		body TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_deputy ON attendance (deputy_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agenda_starts_at ON agenda_items (starts_at)`,
}

// Migrate creates the schema. It is decoupled from the query and ingestion
// paths and meant to be invoked once at process start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
