// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// migrationStep is one side of a migration, run inside the version's
// transaction.
type migrationStep func(ctx context.Context, tx *sqlx.Tx, d Dialect) error

// Migration is one schema version. Versions form a total order; every
// version is reversible except where Down documents an irrecoverable drop.
type Migration struct {
	Version int
	Name    string
	Up      migrationStep
	Down    migrationStep
}

const schemaVersionsTable = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version INTEGER PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	applied_at DATETIME NOT NULL
)`

// SchemaVersion returns the highest applied version, 0 for a fresh schema.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, schemaVersionsTable); err != nil {
		return 0, fmt.Errorf("create schema_versions: %w", classifyError(err))
	}
	var version int
	err := s.db.QueryRowxContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	if err != nil {
		return 0, classifyError(err)
	}
	return version, nil
}

// Migrate upgrades the schema to the latest version.
func (s *Store) Migrate(ctx context.Context) error {
	return s.MigrateTo(ctx, latestVersion())
}

// MigrateTo walks the version chain up or down to target. Each version
// applies inside its own transaction; partial application of a version is
// not tolerated.
func (s *Store) MigrateTo(ctx context.Context, target int) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if target < 0 || target > latestVersion() {
		return fmt.Errorf("%w: no migration version %d", ErrValueError, target)
	}

	ordered := orderedMigrations()

	for current < target {
		next := ordered[current] // versions are 1-based and dense
		if err := s.applyVersion(ctx, next, true); err != nil {
			return err
		}
		current = next.Version
	}

	for current > target {
		m := ordered[current-1]
		if err := s.applyVersion(ctx, m, false); err != nil {
			return err
		}
		current = m.Version - 1
	}

	return nil
}

func (s *Store) applyVersion(ctx context.Context, m Migration, up bool) error {
	direction := "upgrade"
	step := m.Up
	if !up {
		direction = "downgrade"
		step = m.Down
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", classifyError(err))
	}

	if err := step(ctx, tx, s.dialect); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s to version %d (%s): %w", direction, m.Version, m.Name, err)
	}

	if up {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO schema_versions (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, nowNaiveUTC())
	} else {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM schema_versions WHERE version = ?", m.Version)
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record version %d: %w", m.Version, classifyError(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit version %d: %w", m.Version, classifyError(err))
	}

	logging.Info().Int("version", m.Version).Str("name", m.Name).
		Str("direction", direction).Msg("schema migrated")
	return nil
}

func latestVersion() int {
	return len(orderedMigrations())
}

func orderedMigrations() []Migration {
	ms := migrations()
	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })
	for i, m := range ms {
		if m.Version != i+1 {
			// The version chain is dense by construction; a gap is a
			// programming error caught at startup.
			panic(fmt.Sprintf("migration versions not dense at %d", m.Version))
		}
	}
	return ms
}

// stmts builds a step that executes statements in order.
func stmts(statements ...string) migrationStep {
	return func(ctx context.Context, tx *sqlx.Tx, _ Dialect) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", firstLine(stmt), classifyError(err))
			}
		}
		return nil
	}
}

// dstmts builds a step from dialect-dependent statements.
func dstmts(render func(d Dialect) []string) migrationStep {
	return func(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
		for _, stmt := range render(d) {
			if stmt == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", firstLine(stmt), classifyError(err))
			}
		}
		return nil
	}
}

// dropColumn builds a step that removes a column through the dialect.
func dropColumn(table, column string) migrationStep {
	return func(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
		return d.DropColumn(ctx, tx, table, column)
	}
}

// seq chains steps.
func seq(steps ...migrationStep) migrationStep {
	return func(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
		for _, step := range steps {
			if err := step(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
