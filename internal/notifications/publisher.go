// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
)

// Publisher pushes envelopes onto the bus behind a circuit breaker. A
// broker outage must never fail the API request that produced the event;
// publish errors are logged and counted, nothing more.
type Publisher struct {
	bus     Bus
	breaker *gobreaker.CircuitBreaker[any]

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps the bus. The breaker opens after five consecutive
// failures and probes again after thirty seconds.
func NewPublisher(bus Bus) *Publisher {
	settings := gobreaker.Settings{
		Name:    "notifications",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("notifications breaker state changed")
		},
	}
	return &Publisher{
		bus:     bus,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Publish sends one envelope. Failures are swallowed after logging; the
// caller's request has already succeeded and stays that way.
func (p *Publisher) Publish(envelope *Envelope) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return
	}

	msg, err := envelope.Marshal()
	if err != nil {
		logging.Error().Err(err).Str("resource", envelope.Resource).
			Msg("marshal notification")
		return
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.bus.Publisher().Publish(p.bus.Topic(), msg)
	})
	if err != nil {
		metrics.NotificationsDropped.Inc()
		logging.Error().Err(err).
			Str("resource", envelope.Resource).
			Str("method", envelope.Method).
			Msg("publish notification")
		return
	}
	metrics.NotificationsPublished.Inc()
}

// Close stops publishing; later calls are silent no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.bus.Close()
}
