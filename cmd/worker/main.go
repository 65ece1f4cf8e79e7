// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package main is the StoryBoard event worker daemon. It runs a supervised
// pool of subscribers that drain the notification stream and dispatch each
// event to the registered plugins, the subscription fan-out chief among
// them.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
	"github.com/openstack-infra/storyboard-sub001/internal/subscription"
	"github.com/openstack-infra/storyboard-sub001/internal/supervisor"
	"github.com/openstack-infra/storyboard-sub001/internal/worker"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("worker exited")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	bus, err := notifications.NewBus(&cfg.Notifications)
	if err != nil {
		return err
	}
	defer bus.Close()

	plugins := []worker.Plugin{
		subscription.NewHandler(),
	}

	root := supervisor.NewRoot("storyboard-worker")
	for i := 0; i < cfg.WorkerCount; i++ {
		root.Add(worker.NewSubscriber(i, store, bus, plugins))
	}

	logging.Info().Int("workers", cfg.WorkerCount).Msg("storyboard worker starting")
	return root.Serve(ctx)
}
