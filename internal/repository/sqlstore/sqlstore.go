// Package sqlstore holds the query code shared by the SQLite and Postgres
// backends.
//
// Backend differences live behind Dialect: placeholder style, how a unique
// violation is reported and how booleans are stored. Everything else (the
// column lists, ownership predicates, partial updates) is written once here
// with squirrel and scanned with sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Dialect captures what differs between the two database engines.
type Dialect interface {
	Name() string
	Placeholder() sq.PlaceholderFormat
	IsUniqueViolation(err error) bool
	// Bool converts an API boolean to the value the engine stores.
	Bool(v bool) any
	// Schema lists idempotent DDL statements, applied in order.
	Schema() []string
}

// ExecResult reports the outcome of a write.
// ID is the driver's last insert id when it reports one, otherwise 0.
type ExecResult struct {
	ID      int64
	Changes int64
}

// Store is a database handle plus its dialect. It is created once at startup
// and passed to whatever needs it.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

// New wraps an open connection pool.
func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder()),
	}
}

// Backend names the engine, e.g. "sqlite".
func (s *Store) Backend() string {
	return s.dialect.Name()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: ping: %w", s.dialect.Name(), err)
	}
	return nil
}

// Migrate applies the dialect schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: applying schema: %w", s.dialect.Name(), err)
		}
	}
	return nil
}

// =========================================================================
// QUERY HELPERS
// =========================================================================

// Query runs a SELECT and scans every row into dest, which must be a
// pointer to a slice.
func (s *Store) Query(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.SelectContext(ctx, dest, query, args...)
}

// QuerySingle scans at most one row into dest. found is false when the
// query matched nothing; that case is not an error.
func (s *Store) QuerySingle(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Exec runs a write statement.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ExecResult{}, err
	}

	var out ExecResult
	if id, err := res.LastInsertId(); err == nil {
		out.ID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.Changes = n
	}
	return out, nil
}

func (s *Store) selectAll(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return s.Query(ctx, dest, query, args...)
}

func (s *Store) selectOne(ctx context.Context, dest any, b sq.Sqlizer) (bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("building query: %w", err)
	}
	return s.QuerySingle(ctx, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (ExecResult, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return ExecResult{}, fmt.Errorf("building query: %w", err)
	}
	return s.Exec(ctx, query, args...)
}
