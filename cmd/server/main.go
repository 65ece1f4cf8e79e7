// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package main is the StoryBoard API server. It serves the REST surface,
// publishes change events to the notification bus, and runs the scheduled
// maintenance plugins. The event workers live in cmd/worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/api"
	"github.com/openstack-infra/storyboard-sub001/internal/auth"
	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
	"github.com/openstack-infra/storyboard-sub001/internal/scheduler"
	"github.com/openstack-infra/storyboard-sub001/internal/supervisor"
)

// version is stamped at build time with -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	api.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var publisher *notifications.Publisher
	if cfg.API.EnableNotifications {
		bus, err := notifications.NewBus(&cfg.Notifications)
		if err != nil {
			return err
		}
		publisher = notifications.NewPublisher(bus)
		defer publisher.Close()
	}

	router := api.NewRouter(cfg, store, publisher)
	server := &http.Server{
		Addr:              cfg.BindAddr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	root := supervisor.NewRoot("storyboard-api")
	root.Add(&httpService{server: server})
	root.Add(scheduler.NewService(store, auth.NewTokenCleaner(cfg)))

	logging.Info().
		Str("addr", server.Addr).
		Str("version", version).
		Msg("storyboard api starting")
	return root.Serve(ctx)
}

// httpService runs the HTTP listener under the supervisor.
type httpService struct {
	server *http.Server
}

func (s *httpService) String() string { return "http-server" }

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http shutdown incomplete")
		}
		return ctx.Err()
	}
}
