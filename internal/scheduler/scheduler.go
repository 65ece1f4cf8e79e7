// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package scheduler runs periodic maintenance plugins. Each plugin ticks on
// its own interval and every run gets a fresh store session, committed on
// success and rolled back on error.
package scheduler

import (
	"context"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// Plugin is one periodic job.
type Plugin interface {
	Name() string
	Enabled() bool
	Interval() time.Duration
	Run(ctx context.Context, session *database.Session) error
}

// Service ticks a single plugin. It implements suture.Service so the
// supervisor restarts it if a run panics.
type Service struct {
	store  *database.Store
	plugin Plugin
}

func NewService(store *database.Store, plugin Plugin) *Service {
	return &Service{store: store, plugin: plugin}
}

func (s *Service) String() string {
	return "scheduler-" + s.plugin.Name()
}

// Serve implements suture.Service. It runs the plugin once at startup and
// then on every interval tick until the context is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if !s.plugin.Enabled() {
		logging.Info().Str("plugin", s.plugin.Name()).Msg("scheduler plugin disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.plugin.Interval())
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	err := s.store.WithSession(ctx, func(session *database.Session) error {
		return s.plugin.Run(ctx, session)
	})
	if err != nil {
		logging.Error().Err(err).
			Str("plugin", s.plugin.Name()).
			Msg("scheduler plugin run failed")
		return
	}
	logging.Debug().Str("plugin", s.plugin.Name()).Msg("scheduler plugin run complete")
}
