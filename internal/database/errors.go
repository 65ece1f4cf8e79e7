// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// The error taxonomy surfaced by the store. Callers match with errors.Is;
// the API layer maps each kind to an HTTP status.
var (
	// ErrNotFound: the entity does not exist (or is soft-deleted).
	ErrNotFound = errors.New("object not found")

	// ErrDuplicateEntry: a unique constraint was violated.
	ErrDuplicateEntry = errors.New("database object already exists")

	// ErrReferenceViolation: a foreign key constraint was violated.
	ErrReferenceViolation = errors.New("foreign key constraint violated")

	// ErrInvalidSortKey: the requested sort_field is not sortable.
	ErrInvalidSortKey = errors.New("invalid sort key")

	// ErrValueError: a value was rejected before reaching the database,
	// e.g. a timestamp without a UTC zone.
	ErrValueError = errors.New("invalid value")

	// ErrConnection: the database connection was lost.
	ErrConnection = errors.New("database connection lost")

	// ErrDeadlock: the transaction lost a deadlock or serialization race;
	// the caller may retry.
	ErrDeadlock = errors.New("database deadlock detected")

	// ErrInvalidUnicode: a parameter was not valid unicode.
	ErrInvalidUnicode = errors.New("invalid unicode parameter")
)

// ClientError is a business-rule violation that maps to a 4xx, such as
// adding a project to a group it is already in.
type ClientError struct {
	Msg string
}

func (e *ClientError) Error() string { return e.Msg }

// NewClientError builds a ClientError with a formatted message.
func NewClientError(format string, args ...any) *ClientError {
	return &ClientError{Msg: fmt.Sprintf(format, args...)}
}

// classifyError folds driver-specific failures into the store taxonomy.
// Unrecognized errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDuplicateEntry, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrReferenceViolation, err)
		}
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", ErrDeadlock, err)
		case sqlite3.ErrCantOpen:
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return err
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062: // ER_DUP_ENTRY
			return fmt.Errorf("%w: %v", ErrDuplicateEntry, err)
		case 1216, 1217, 1451, 1452: // FK violations
			return fmt.Errorf("%w: %v", ErrReferenceViolation, err)
		case 1213, 1205: // deadlock, lock wait timeout
			return fmt.Errorf("%w: %v", ErrDeadlock, err)
		case 1366: // incorrect string value
			return fmt.Errorf("%w: %v", ErrInvalidUnicode, err)
		case 2002, 2006, 2013: // gone away / lost connection
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return err
	}

	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// Driver-independent connection failures.
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "broken pipe") {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return err
}

// validUnicode rejects parameters the backend cannot store.
func validUnicode(values ...string) error {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %q", ErrInvalidUnicode, v)
		}
	}
	return nil
}
