// Package sqlite is the embedded storage backend.
//
// It uses modernc.org/sqlite, a pure-Go port of SQLite, so the binary builds
// without cgo. Pragmas are passed in the DSN so that every pooled connection
// gets them, not only the first one.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/omi/internal/repository/sqlstore"
)

// MemoryPath opens a private, non-persistent database. Used by tests.
const MemoryPath = ":memory:"

const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)"

// Open opens (creating if needed) the database file at path and applies the
// schema.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: creating directory %s: %w", dir, err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to :memory: is a separate database; pin the pool to
	// one connection so every query sees the same tables.
	if path == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	store := sqlstore.New(conn, Dialect{})
	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return store, nil
}

// Dialect implements sqlstore.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder() sq.PlaceholderFormat { return sq.Question }

// Bool stores booleans as 0/1; SQLite has no native boolean type.
func (Dialect) Bool(v bool) any {
	if v {
		return 1
	}
	return 0
}

func (Dialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (Dialect) Schema() []string {
	return schema
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS thoughts (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		transcription   TEXT,
		processed_text  TEXT NOT NULL,
		category        TEXT NOT NULL,
		sub_category    TEXT,
		mood_score      REAL,
		priority        TEXT NOT NULL DEFAULT 'medium',
		tags            TEXT DEFAULT '[]',
		action_steps    TEXT DEFAULT '[]',
		status          TEXT NOT NULL DEFAULT 'pending',
		task_status     TEXT,
		requires_triage INTEGER NOT NULL DEFAULT 0,
		created_date    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_thoughts_user_id ON thoughts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_thoughts_status ON thoughts(status)`,
	`CREATE INDEX IF NOT EXISTS idx_thoughts_category ON thoughts(category)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		description  TEXT,
		status       TEXT NOT NULL DEFAULT 'active',
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status)`,
}
