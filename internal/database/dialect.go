// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect abstracts the differences between the supported backends that the
// store cares about: full-text availability, column drops and type spelling.
type Dialect interface {
	// Name is the database/sql driver name: sqlite3 or mysql.
	Name() string

	// SupportsFulltext probes the server for FULLTEXT index support
	// (MySQL >= 5.6). SQLite always reports false and searches fall back
	// to LIKE.
	SupportsFulltext(ctx context.Context, db *sqlx.DB) bool

	// DropColumn removes a column within the given transaction. MySQL has
	// ALTER TABLE ... DROP COLUMN; SQLite emulates with a shadow table.
	DropColumn(ctx context.Context, tx *sqlx.Tx, table, column string) error

	// MediumText is the widest text column type the backend offers.
	MediumText() string

	// PrimaryKey is the surrogate id column definition.
	PrimaryKey() string

	// Datetime is the timestamp column type; rows hold naive UTC.
	Datetime() string
}

// NewDialect returns the dialect for a driver name.
func NewDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) SupportsFulltext(context.Context, *sqlx.DB) bool { return false }

func (sqliteDialect) MediumText() string { return "TEXT" }

func (sqliteDialect) PrimaryKey() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

func (sqliteDialect) Datetime() string { return "DATETIME" }

// DropColumn emulates ALTER TABLE ... DROP COLUMN: create a shadow table
// without the column, copy the rows, drop the original, rename.
func (sqliteDialect) DropColumn(ctx context.Context, tx *sqlx.Tx, table, column string) error {
	var createSQL string
	row := tx.QueryRowxContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err := row.Scan(&createSQL); err != nil {
		return fmt.Errorf("read schema for %s: %w", table, classifyError(err))
	}

	columns, err := sqliteTableColumns(createSQL, column)
	if err != nil {
		return err
	}

	keep := strings.Join(columns, ", ")
	shadow := table + "_dropcol"
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s AS SELECT %s FROM %s", shadow, keep, table),
		fmt.Sprintf("DROP TABLE %s", table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, table),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop column %s.%s: %w", table, column, classifyError(err))
		}
	}
	return nil
}

// sqliteTableColumns extracts column names from a CREATE TABLE statement,
// excluding the named column. Good enough for the schemas the migration
// engine itself creates.
func sqliteTableColumns(createSQL, exclude string) ([]string, error) {
	open := strings.Index(createSQL, "(")
	closeIdx := strings.LastIndex(createSQL, ")")
	if open < 0 || closeIdx <= open {
		return nil, fmt.Errorf("%w: cannot parse table definition", ErrValueError)
	}

	body := createSQL[open+1 : closeIdx]
	var parts []string
	depth, last := 0, 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, body[last:])

	var columns []string

	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		name := strings.Trim(fields[0], `"`)
		upper := strings.ToUpper(name)
		// Skip table-level constraint clauses.
		if upper == "PRIMARY" || upper == "UNIQUE" || upper == "FOREIGN" ||
			upper == "CHECK" || upper == "CONSTRAINT" {
			continue
		}
		if name != exclude {
			columns = append(columns, name)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns left after dropping %s", ErrValueError, exclude)
	}
	return columns, nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) MediumText() string { return "MEDIUMTEXT" }

func (mysqlDialect) PrimaryKey() string { return "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY" }

func (mysqlDialect) Datetime() string { return "DATETIME(6)" }

// SupportsFulltext probes the server version; FULLTEXT on InnoDB arrived in
// MySQL 5.6.
func (mysqlDialect) SupportsFulltext(ctx context.Context, db *sqlx.DB) bool {
	var version string
	if err := db.QueryRowxContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return false
	}
	major, minor, ok := parseServerVersion(version)
	if !ok {
		return false
	}
	return major > 5 || (major == 5 && minor >= 6)
}

func (mysqlDialect) DropColumn(ctx context.Context, tx *sqlx.Tx, table, column string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop column %s.%s: %w", table, column, classifyError(err))
	}
	return nil
}

func parseServerVersion(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	// Strip any suffix such as "6-log".
	minorStr := parts[1]
	if idx := strings.IndexFunc(minorStr, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
		minorStr = minorStr[:idx]
	}
	minor, err = strconv.Atoi(minorStr)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
