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

func TestTokenCleanerPurgesExpired(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session)

	stale := models.NewUTCTime(time.Now().UTC().AddDate(0, 0, -30))
	expired := &models.AccessToken{AccessToken: "long-gone", UserID: user.ID, ExpiresIn: 3600}
	expired.CreatedAt = stale
	expired.UpdatedAt = stale
	if err := session.CreateAccessToken(ctx, expired); err != nil {
		t.Fatalf("create expired token: %v", err)
	}
	live := &models.AccessToken{AccessToken: "still-good", UserID: user.ID, ExpiresIn: 3600}
	if err := session.CreateAccessToken(ctx, live); err != nil {
		t.Fatalf("create live token: %v", err)
	}

	cfg := config.Default()
	cleaner := NewTokenCleaner(cfg)
	if cleaner.Name() != "token_cleaner" || !cleaner.Enabled() {
		t.Fatalf("cleaner = %s enabled=%v", cleaner.Name(), cleaner.Enabled())
	}
	if err := cleaner.Run(ctx, session); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := session.GetAccessToken(ctx, "long-gone"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expired token lookup = %v, want ErrNotFound", err)
	}
	if _, err := session.GetAccessToken(ctx, "still-good"); err != nil {
		t.Fatalf("live token lookup: %v", err)
	}

	cfg.TokenCleaner.Enable = false
	if cleaner.Enabled() {
		t.Fatal("cleaner ignores the config gate")
	}
}
