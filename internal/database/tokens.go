// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// CreateAuthorizationCode mints a short-lived OAuth code.
func (s *Session) CreateAuthorizationCode(ctx context.Context, code *models.AuthorizationCode) error {
	if code.ExpiresIn <= 0 {
		code.ExpiresIn = models.DefaultAuthorizationCodeTTL
	}
	code.IsActive = true
	touch(&code.Base)
	id, err := s.insert(ctx, `
		INSERT INTO authorization_codes (created_at, updated_at, code, state,
			user_id, expires_in, is_active)
		VALUES (:created_at, :updated_at, :code, :state,
			:user_id, :expires_in, :is_active)`, code)
	if err != nil {
		return err
	}
	code.ID = id
	return nil
}

// GetAuthorizationCode fetches an active code by its value.
func (s *Session) GetAuthorizationCode(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	var row models.AuthorizationCode
	err := s.getOne(ctx, &row, `
		SELECT id, created_at, updated_at, code, state, user_id, expires_in, is_active
		FROM authorization_codes WHERE code = ? AND is_active = ?`, code, true)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ConsumeAuthorizationCode soft-deletes a code after its single use.
func (s *Session) ConsumeAuthorizationCode(ctx context.Context, id int64) error {
	return s.execAffecting(ctx,
		"UPDATE authorization_codes SET updated_at = ?, is_active = ? WHERE id = ? AND is_active = ?",
		models.Now(), false, id, true)
}

// CreateAccessToken stores a bearer token. ExpiresAt derives from
// created_at + expires_in when unset.
func (s *Session) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	touch(&token.Base)
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = models.NewUTCTime(
			token.CreatedAt.Add(time.Duration(token.ExpiresIn) * time.Second))
	}
	if err := ensureAware(token.ExpiresAt.Time); err != nil {
		return err
	}
	id, err := s.insert(ctx, `
		INSERT INTO access_tokens (created_at, updated_at, access_token,
			user_id, expires_in, expires_at)
		VALUES (:created_at, :updated_at, :access_token,
			:user_id, :expires_in, :expires_at)`, token)
	if err != nil {
		return err
	}
	token.ID = id
	return nil
}

// GetAccessToken fetches a token row by its opaque value.
func (s *Session) GetAccessToken(ctx context.Context, value string) (*models.AccessToken, error) {
	var token models.AccessToken
	err := s.getOne(ctx, &token, `
		SELECT id, created_at, updated_at, access_token, user_id, expires_in, expires_at
		FROM access_tokens WHERE access_token = ?`, value)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteAccessToken removes a token; the paired refresh token cascades.
func (s *Session) DeleteAccessToken(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "DELETE FROM access_tokens WHERE id = ?", id)
}

// CreateRefreshToken stores the refresh half of a token pair.
func (s *Session) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	touch(&token.Base)
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = models.NewUTCTime(
			token.CreatedAt.Add(time.Duration(token.ExpiresIn) * time.Second))
	}
	if err := ensureAware(token.ExpiresAt.Time); err != nil {
		return err
	}
	id, err := s.insert(ctx, `
		INSERT INTO refresh_tokens (created_at, updated_at, refresh_token,
			access_token_id, user_id, expires_in, expires_at)
		VALUES (:created_at, :updated_at, :refresh_token,
			:access_token_id, :user_id, :expires_in, :expires_at)`, token)
	if err != nil {
		return err
	}
	token.ID = id
	return nil
}

// GetRefreshToken fetches a refresh token row by its opaque value.
func (s *Session) GetRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := s.getOne(ctx, &token, `
		SELECT id, created_at, updated_at, refresh_token, access_token_id,
			user_id, expires_in, expires_at
		FROM refresh_tokens WHERE refresh_token = ?`, value)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// CleanExpiredTokens removes access tokens whose expiry is more than grace
// in the past, cascading to refresh tokens, plus stale authorization codes.
// Tokens inside the grace window survive so a refresh in flight can land.
func (s *Session) CleanExpiredTokens(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	if err := ensureAware(now); err != nil {
		return 0, err
	}
	cutoff := now.Add(-grace)

	res, err := s.tx.ExecContext(ctx,
		"DELETE FROM access_tokens WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, classifyError(err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, classifyError(err)
	}

	// Refresh tokens normally cascade; sweep any orphans whose own expiry
	// passed the cutoff too.
	if _, err := s.tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff); err != nil {
		return removed, classifyError(err)
	}

	// Codes live minutes; anything inactive or past expiry goes at once.
	if _, err := s.tx.ExecContext(ctx, `
		DELETE FROM authorization_codes
		WHERE is_active = ? OR created_at < ?`,
		false, now.Add(-time.Duration(models.DefaultAuthorizationCodeTTL)*time.Second)); err != nil {
		return removed, classifyError(err)
	}

	return removed, nil
}
