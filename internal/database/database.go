// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package database is the typed entity store of StoryBoard. It provides
// session-scoped CRUD over sqlx with uniform filter/sort/pagination
// semantics, a small error taxonomy, UTC-normalized timestamps and an
// ordered, reversible schema migration engine.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// Store owns the connection pool. It is a process-wide singleton handed
// around as explicit context; the engine facade is created once and closed
// at shutdown.
type Store struct {
	db       *sqlx.DB
	dialect  Dialect
	fulltext bool
}

// Open connects to the configured backend, applies pool limits, probes
// full-text support and runs pending migrations.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	dialect, err := NewDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.Connection
	if cfg.Driver == "mysql" {
		// The application owns timezone conversion: rows hold naive UTC.
		dsn = ensureMySQLParams(dsn)
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, classifyError(err))
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.Driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", classifyError(err))
		}
	}

	store := &Store{
		db:      db,
		dialect: dialect,
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}

	store.fulltext = dialect.SupportsFulltext(ctx, db)
	logging.Info().
		Str("driver", cfg.Driver).
		Bool("fulltext", store.fulltext).
		Msg("database ready")

	return store, nil
}

// ensureMySQLParams forces parseTime and UTC handling on the MySQL DSN.
func ensureMySQLParams(dsn string) string {
	sep := "?"
	for _, r := range dsn {
		if r == '?' {
			sep = "&"
			break
		}
	}
	return dsn + sep + "parseTime=true&loc=UTC"
}

// Close tears the pool down.
func (s *Store) Close() error {
	return s.db.Close()
}

// FulltextEnabled reports whether search should route through the FULLTEXT
// indexes rather than LIKE.
func (s *Store) FulltextEnabled() bool { return s.fulltext }

// Dialect exposes the active dialect, mostly for tests.
func (s *Store) Dialect() Dialect { return s.dialect }

// Session is one database transaction. The request hook chain opens a
// session per mutating request; worker plugins and scheduler runs each get
// their own.
type Session struct {
	tx    *sqlx.Tx
	store *Store
	done  bool
}

// NewSession begins a transaction.
func (s *Store) NewSession(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", classifyError(err))
	}
	return &Session{tx: tx, store: s}, nil
}

// Commit commits the transaction. Committing a finished session is a no-op,
// matching the request hook contract that a rolled back session must not
// re-raise on teardown.
func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return classifyError(err)
	}
	return nil
}

// Rollback aborts the transaction; safe to call after Commit.
func (s *Session) Rollback() {
	if s.done {
		return
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("session rollback failed")
	}
}

// WithSession runs fn inside a fresh session, committing on success and
// rolling back on error.
func (s *Store) WithSession(ctx context.Context, fn func(*Session) error) error {
	session, err := s.NewSession(ctx)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		session.Rollback()
		return err
	}
	return session.Commit()
}

// ensureAware rejects writes whose timestamps are not explicitly UTC. Rows
// store naive UTC; the adapter attaches the zone on read, so a value
// arriving with any other (or no meaningful) zone cannot round-trip.
func ensureAware(t time.Time) error {
	if t.IsZero() {
		return nil
	}
	if t.Location() != time.UTC {
		return fmt.Errorf("%w: timestamp %s is not timezone-aware UTC", ErrValueError, t)
	}
	return nil
}

// nowNaiveUTC is the instant stored in timestamp columns.
func nowNaiveUTC() time.Time {
	return time.Now().UTC()
}

// touch stamps created_at/updated_at for an insert.
func touch(base *models.Base) {
	now := models.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// insert runs a named INSERT and returns the generated id.
func (s *Session) insert(ctx context.Context, query string, arg any) (int64, error) {
	res, err := s.tx.NamedExecContext(ctx, query, arg)
	if err != nil {
		return 0, classifyError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classifyError(err)
	}
	return id, nil
}

// getOne reads a single row into dest, mapping the empty result to
// ErrNotFound.
func (s *Session) getOne(ctx context.Context, dest any, query string, args ...any) error {
	if err := s.tx.GetContext(ctx, dest, query, args...); err != nil {
		return classifyError(err)
	}
	return nil
}

// exec runs a statement without row expectations.
func (s *Session) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return classifyError(err)
	}
	return nil
}

// execAffecting runs an UPDATE or DELETE that must touch at least one row;
// zero rows means the target does not exist.
func (s *Session) execAffecting(ctx context.Context, query string, args ...any) error {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
