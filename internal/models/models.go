// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package models provides the data structures of the StoryBoard domain:
// stories, tasks, projects, subscriptions, OAuth credentials and their
// relatives. All persisted rows carry an integer surrogate id plus UTC
// created_at/updated_at timestamps.
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Base carries the columns every StoryBoard table has.
type Base struct {
	ID        int64   `db:"id" json:"id"`
	CreatedAt UTCTime `db:"created_at" json:"created_at"`
	UpdatedAt UTCTime `db:"updated_at" json:"updated_at"`
}

// ServerOwnedFields are stripped from inbound JSON bodies before the
// controller sees them; clients never set these.
var ServerOwnedFields = []string{"id", "created_at", "updated_at"}

// UTCTime is a timestamp that is always timezone aware and always UTC.
// Unmarshaling a value without a zone offset fails; this is how naive
// timestamps are rejected at the write boundary.
type UTCTime struct {
	time.Time
}

// NewUTCTime normalizes t to UTC.
func NewUTCTime(t time.Time) UTCTime {
	return UTCTime{t.UTC()}
}

// Now returns the current instant in UTC.
func Now() UTCTime {
	return UTCTime{time.Now().UTC()}
}

// UnmarshalJSON accepts RFC 3339 timestamps that carry an explicit offset
// and rejects zoneless values.
func (t *UTCTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" || raw == "null" {
		*t = UTCTime{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// RFC 3339 requires an offset; a bare local timestamp lands here.
		if !strings.ContainsAny(raw, "Zz+") {
			return fmt.Errorf("timestamp %q has no timezone: naive timestamps are rejected", raw)
		}
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	*t = UTCTime{parsed.UTC()}
	return nil
}

// MarshalJSON renders the instant in RFC 3339 UTC.
func (t UTCTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Value stores the instant as naive UTC; the application owns the zone.
func (t UTCTime) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC(), nil
}

// Scan reads a database timestamp and attaches UTC on the way out.
func (t *UTCTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = UTCTime{}
		return nil
	case time.Time:
		*t = UTCTime{v.UTC()}
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into UTCTime", src)
	}
}

func (t *UTCTime) scanString(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = UTCTime{parsed.UTC()}
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
