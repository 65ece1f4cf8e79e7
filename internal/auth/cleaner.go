// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package auth

import (
	"context"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
)

// Tokens stay around for a week past expiry so an unlucky refresh race does
// not strand a client, then the cleaner removes them.
const (
	cleanerInterval = time.Hour
	cleanerGrace    = 7 * 24 * time.Hour
)

// TokenCleaner is the scheduler plugin that purges expired OAuth state.
type TokenCleaner struct {
	cfg *config.Config
}

func NewTokenCleaner(cfg *config.Config) *TokenCleaner {
	return &TokenCleaner{cfg: cfg}
}

func (c *TokenCleaner) Name() string { return "token_cleaner" }

func (c *TokenCleaner) Enabled() bool { return c.cfg.TokenCleaner.Enable }

func (c *TokenCleaner) Interval() time.Duration { return cleanerInterval }

// Run deletes access tokens expired past the grace window, their refresh
// tokens, and stale authorization codes.
func (c *TokenCleaner) Run(ctx context.Context, session *database.Session) error {
	cleaned, err := session.CleanExpiredTokens(ctx, time.Now().UTC(), cleanerGrace)
	if err != nil {
		return err
	}
	if cleaned > 0 {
		metrics.TokensCleaned.Add(float64(cleaned))
		logging.Info().Int64("tokens", cleaned).Msg("expired tokens cleaned")
	}
	return nil
}
