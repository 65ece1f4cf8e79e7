// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package worker consumes the event stream and dispatches each envelope to
// the registered plugins. Subscribers share a queue group, so running more
// of them spreads the stream without duplicating work.
package worker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

// Plugin handles one event inside its own store session. Returning an error
// rolls that session back; the event is not redelivered.
type Plugin interface {
	Name() string
	Enabled() bool
	Handle(ctx context.Context, session *database.Session, envelope *notifications.Envelope) error
}

// Subscriber is one consumer in the queue group. It implements
// suture.Service; the supervisor restarts it on failure.
type Subscriber struct {
	id      int
	store   *database.Store
	bus     notifications.Bus
	plugins []Plugin
}

func NewSubscriber(id int, store *database.Store, bus notifications.Bus, plugins []Plugin) *Subscriber {
	return &Subscriber{id: id, store: store, bus: bus, plugins: plugins}
}

func (s *Subscriber) String() string {
	return fmt.Sprintf("event-worker-%d", s.id)
}

// Serve implements suture.Service. It consumes the stream sequentially
// until the context is cancelled.
func (s *Subscriber) Serve(ctx context.Context) error {
	subscriber, err := s.bus.Subscribe()
	if err != nil {
		return fmt.Errorf("opening event subscription: %w", err)
	}
	defer subscriber.Close()

	messages, err := subscriber.Subscribe(ctx, s.bus.Topic())
	if err != nil {
		return fmt.Errorf("subscribing to %q: %w", s.bus.Topic(), err)
	}

	logging.Info().Int("worker", s.id).Msg("event worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			s.handle(ctx, msg)
			// Plugin errors are terminal for the event; ack either way.
			msg.Ack()
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg *message.Message) {
	envelope, err := notifications.Unmarshal(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("discarding undecodable event")
		return
	}

	for _, plugin := range s.plugins {
		if !plugin.Enabled() {
			continue
		}
		err := s.store.WithSession(ctx, func(session *database.Session) error {
			return plugin.Handle(ctx, session, envelope)
		})
		if err != nil {
			metrics.WorkerEventsFailed.WithLabelValues(plugin.Name()).Inc()
			logging.Error().Err(err).
				Str("plugin", plugin.Name()).
				Str("resource", envelope.Resource).
				Str("method", envelope.Method).
				Msg("event plugin failed")
			continue
		}
		metrics.WorkerEventsProcessed.WithLabelValues(plugin.Name()).Inc()
	}
}
