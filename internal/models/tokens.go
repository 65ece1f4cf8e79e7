// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

import "time"

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// DefaultAuthorizationCodeTTL is the authorization code lifetime in seconds.
const DefaultAuthorizationCodeTTL = 300

// AuthorizationCode is the single-use short-lived OAuth credential traded
// for an access token. Codes soft-delete (IsActive=false) on use.
type AuthorizationCode struct {
	Base
	Code      string `db:"code" json:"code"`
	State     string `db:"state" json:"state"`
	UserID    int64  `db:"user_id" json:"user_id"`
	ExpiresIn int64  `db:"expires_in" json:"expires_in"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}

// Expired reports whether the code is past created_at + expires_in.
func (c *AuthorizationCode) Expired(now UTCTime) bool {
	return now.After(c.CreatedAt.Add(secondsToDuration(c.ExpiresIn)))
}

// AccessToken is an opaque bearer credential. It owns at most one refresh
// token, removed by foreign key cascade when the access token is deleted.
type AccessToken struct {
	Base
	AccessToken string  `db:"access_token" json:"access_token"`
	UserID      int64   `db:"user_id" json:"user_id"`
	ExpiresIn   int64   `db:"expires_in" json:"expires_in"`
	ExpiresAt   UTCTime `db:"expires_at" json:"expires_at"`
}

// Expired reports whether now is at or past the token expiry.
func (t *AccessToken) Expired(now UTCTime) bool {
	return !now.Before(t.ExpiresAt.Time)
}

// RefreshToken pairs with exactly one access token.
type RefreshToken struct {
	Base
	RefreshToken  string  `db:"refresh_token" json:"refresh_token"`
	AccessTokenID int64   `db:"access_token_id" json:"access_token_id"`
	UserID        int64   `db:"user_id" json:"user_id"`
	ExpiresIn     int64   `db:"expires_in" json:"expires_in"`
	ExpiresAt     UTCTime `db:"expires_at" json:"expires_at"`
}

// Expired reports whether now is at or past the token expiry.
func (t *RefreshToken) Expired(now UTCTime) bool {
	return !now.Before(t.ExpiresAt.Time)
}
