// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// Bus is a pluggable event transport. The nats driver carries events
// across processes through JetStream; the channel driver is an in-process
// transport for single-binary deployments and tests.
type Bus interface {
	// Publisher returns the shared publisher handle.
	Publisher() message.Publisher

	// Subscribe opens the worker stream. Subscribers in the same queue
	// group share the stream; each event reaches one of them.
	Subscribe() (message.Subscriber, error)

	// Topic is the stream name events travel on.
	Topic() string

	Close() error
}

// NewBus builds the configured driver.
func NewBus(cfg *config.NotificationsConfig) (Bus, error) {
	switch cfg.Driver {
	case "nats":
		return newNATSBus(&cfg.NATS)
	case "channel":
		return newChannelBus(&cfg.NATS)
	default:
		return nil, fmt.Errorf("unknown notifications driver %q", cfg.Driver)
	}
}

// busLogger adapts the process logger to watermill's LoggerAdapter.
type busLogger struct {
	fields watermill.LogFields
}

func newBusLogger() watermill.LoggerAdapter {
	return &busLogger{}
}

func (l *busLogger) event(evt *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range l.fields {
		evt = evt.Interface(k, v)
	}
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg(msg)
}

func (l *busLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), msg, fields)
}

func (l *busLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Info(), msg, fields)
}

func (l *busLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l *busLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l *busLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &busLogger{fields: merged}
}
