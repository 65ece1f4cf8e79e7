// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:       "sqlite3",
		Connection:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	store, err := database.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestSession(t *testing.T, store *database.Store) *database.Session {
	t.Helper()
	session, err := store.NewSession(context.Background())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { session.Rollback() })
	return session
}

func mustCreateUser(t *testing.T, session *database.Session) *models.User {
	t.Helper()
	user := &models.User{
		OpenID:      "https://login.example.org/tester",
		Email:       "tester@example.org",
		FullName:    "Tester",
		IsActive:    true,
		EnableLogin: true,
	}
	if err := session.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestExchangeIssuesTokenPair(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session)
	svc := NewService(store)

	code, err := svc.MintCode(ctx, session, user.ID, "csrf-state")
	if err != nil {
		t.Fatalf("mint code: %v", err)
	}
	if code.Code == "" || code.ExpiresIn != CodeTTL {
		t.Fatalf("code = %+v, want opaque value with %ds lifetime", code, CodeTTL)
	}

	tokens, err := svc.Exchange(ctx, session, code.Code)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tokens.TokenType != "Bearer" || tokens.ExpiresIn != AccessTokenTTL {
		t.Fatalf("token response = %+v", tokens)
	}

	access, err := session.GetAccessToken(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("lookup access token: %v", err)
	}
	if access.UserID != user.ID {
		t.Fatalf("access token user = %d, want %d", access.UserID, user.ID)
	}
}

func TestExchangeIsSingleUse(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session)
	svc := NewService(store)

	code, err := svc.MintCode(ctx, session, user.ID, "")
	if err != nil {
		t.Fatalf("mint code: %v", err)
	}
	if _, err := svc.Exchange(ctx, session, code.Code); err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	_, err = svc.Exchange(ctx, session, code.Code)
	var clientErr *database.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("second exchange = %v, want ClientError", err)
	}
}

func TestExchangeRejectsExpiredCode(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session)
	svc := NewService(store)

	stale := models.NewUTCTime(time.Now().UTC().Add(-10 * time.Minute))
	code := &models.AuthorizationCode{Code: "stale-code", UserID: user.ID, ExpiresIn: CodeTTL}
	code.CreatedAt = stale
	code.UpdatedAt = stale
	if err := session.CreateAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	_, err := svc.Exchange(ctx, session, "stale-code")
	var clientErr *database.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expired exchange = %v, want ClientError", err)
	}

	// Expired or not, the code burns on presentation.
	if _, err := session.GetAuthorizationCode(ctx, "stale-code"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expired code still active: %v", err)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session)
	svc := NewService(store)

	code, err := svc.MintCode(ctx, session, user.ID, "")
	if err != nil {
		t.Fatalf("mint code: %v", err)
	}
	first, err := svc.Exchange(ctx, session, code.Code)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}

	second, err := svc.Refresh(ctx, session, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.AccessToken == first.AccessToken || second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh did not rotate the token pair")
	}

	// The old pair is gone: the access token was deleted and the refresh
	// token cascaded with it.
	if _, err := session.GetAccessToken(ctx, first.AccessToken); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("old access token lookup = %v, want ErrNotFound", err)
	}
	if _, err := session.GetRefreshToken(ctx, first.RefreshToken); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("old refresh token lookup = %v, want ErrNotFound", err)
	}

	_, err = svc.Refresh(ctx, session, first.RefreshToken)
	var clientErr *database.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("reusing rotated refresh token = %v, want ClientError", err)
	}
}
