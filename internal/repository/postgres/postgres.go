// Package postgres is the networked storage backend, used when a
// DATABASE_URL is configured. It connects through pgx's database/sql driver
// and shares all query code with the SQLite backend via sqlstore.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/omi/internal/repository/sqlstore"
)

const uniqueViolation = "23505"

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects, verifies the connection and applies the schema.
func Open(ctx context.Context, cfg PoolConfig) (*sqlstore.Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	store := Wrap(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Wrap builds a Store over an existing handle without touching the schema.
func Wrap(db *sqlx.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

// Dialect implements sqlstore.Dialect for Postgres.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (Dialect) Bool(v bool) any { return v }

func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
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
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS thoughts (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		transcription   TEXT,
		processed_text  TEXT NOT NULL,
		category        TEXT NOT NULL,
		sub_category    TEXT,
		mood_score      DOUBLE PRECISION,
		priority        TEXT NOT NULL DEFAULT 'medium',
		tags            TEXT DEFAULT '[]',
		action_steps    TEXT DEFAULT '[]',
		status          TEXT NOT NULL DEFAULT 'pending',
		task_status     TEXT,
		requires_triage BOOLEAN NOT NULL DEFAULT FALSE,
		created_date    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
		created_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status)`,
}
