// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"context"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	userKey    contextKey = "user"
)

func withSession(ctx context.Context, session *database.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// sessionFrom returns the request transaction. The session middleware runs
// on every route, so handlers can assume it is present.
func sessionFrom(ctx context.Context) *database.Session {
	session, _ := ctx.Value(sessionKey).(*database.Session)
	return session
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// userFrom returns the authenticated user, or nil for anonymous requests.
func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// currentUserID returns the authenticated user's id, or zero for anonymous
// requests.
func currentUserID(ctx context.Context) int64 {
	if user := userFrom(ctx); user != nil {
		return user.ID
	}
	return 0
}
