// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"
	"strings"
)

// Filter operators.
type FilterOp int

const (
	// OpEqual is strict equality.
	OpEqual FilterOp = iota
	// OpSubstring is case-insensitive substring match on string columns.
	OpSubstring
	// OpIn produces WHERE col IN (...).
	OpIn
)

// Filter is one column predicate. A list value with OpIn produces an IN
// clause; string columns usually use OpSubstring; everything else OpEqual.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
	Values []any
}

// Query carries the uniform list parameters every collection endpoint
// accepts: marker/limit/offset pagination, sorting and filters.
type Query struct {
	// Marker is the id of the last-seen row; pagination is keyset-style
	// on (SortField, id).
	Marker *int64

	Limit  *int
	Offset *int

	// SortField defaults to id. A field outside the table's sortable set
	// fails with ErrInvalidSortKey.
	SortField string

	// SortDir is asc or desc (default asc).
	SortDir string

	Filters []Filter
}

// Eq appends an equality filter.
func (q Query) Eq(column string, value any) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpEqual, Value: value})
	return q
}

// Sub appends a substring filter.
func (q Query) Sub(column, value string) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpSubstring, Value: value})
	return q
}

// In appends an IN filter.
func (q Query) In(column string, values ...any) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpIn, Values: values})
	return q
}

// buildList renders the WHERE/ORDER/LIMIT tail of a list query against one
// table. sortable is the allowlist of sort fields; id is always allowed.
// The marker row's sort value is resolved by subquery so that keyset
// pagination stays a single statement.
func buildList(table string, sortable map[string]bool, q Query) (string, []any, error) {
	sortField := q.SortField
	if sortField == "" {
		sortField = "id"
	}
	if sortField != "id" && !sortable[sortField] {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidSortKey, sortField)
	}

	sortDir := strings.ToLower(q.SortDir)
	switch sortDir {
	case "":
		sortDir = "asc"
	case "asc", "desc":
	default:
		return "", nil, fmt.Errorf("%w: sort_dir %q", ErrValueError, q.SortDir)
	}

	var clauses []string
	var args []any

	for _, f := range q.Filters {
		switch f.Op {
		case OpEqual:
			clauses = append(clauses, fmt.Sprintf("%s = ?", f.Column))
			args = append(args, f.Value)
		case OpSubstring:
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ?", f.Column))
			args = append(args, "%"+strings.ToLower(fmt.Sprint(f.Value))+"%")
		case OpIn:
			if len(f.Values) == 0 {
				// IN () matches nothing.
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", f.Column, placeholders))
			args = append(args, f.Values...)
		}
	}

	if q.Marker != nil {
		cmp := ">"
		if sortDir == "desc" {
			cmp = "<"
		}
		markerVal := fmt.Sprintf("(SELECT %s FROM %s WHERE id = ?)", sortField, table)
		clauses = append(clauses, fmt.Sprintf(
			"(%s %s %s OR (%s = %s AND id %s ?))",
			sortField, cmp, markerVal, sortField, markerVal, cmp))
		args = append(args, *q.Marker, *q.Marker, *q.Marker)
	}

	var sb strings.Builder
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id %s", sortField, sortDir, sortDir)

	if q.Limit != nil && *q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset > 0 {
		if q.Limit == nil || *q.Limit <= 0 {
			// Both backends require a LIMIT clause before OFFSET.
			sb.WriteString(" LIMIT 9223372036854775807")
		}
		fmt.Fprintf(&sb, " OFFSET %d", *q.Offset)
	}

	return sb.String(), args, nil
}

// selectList executes a list query into dest.
func (s *Session) selectList(ctx context.Context, dest any, table, columns string, sortable map[string]bool, q Query, extraWhere string, extraArgs ...any) error {
	tail, args, err := buildList(table, sortable, q)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	if extraWhere != "" {
		if strings.Contains(tail, " WHERE ") {
			tail = strings.Replace(tail, " WHERE ", " WHERE "+extraWhere+" AND ", 1)
		} else {
			// Tail starts at ORDER BY; inject the WHERE ahead of it.
			tail = " WHERE " + extraWhere + tail
		}
		args = append(extraArgs, args...)
	}

	if err := s.tx.SelectContext(ctx, dest, stmt+tail, args...); err != nil {
		return classifyError(err)
	}
	return nil
}
