// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// natsBus carries events through NATS JetStream. Workers subscribe in a
// shared queue group, so each event is delivered to exactly one worker.
type natsBus struct {
	cfg       *config.NATSConfig
	logger    watermill.LoggerAdapter
	publisher message.Publisher
}

func newNATSBus(cfg *config.NATSConfig) (Bus, error) {
	logger := newBusLogger()

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg),
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect notifications publisher: %w", err)
	}

	return &natsBus{cfg: cfg, logger: logger, publisher: publisher}, nil
}

func natsOptions(cfg *config.NATSConfig) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.ConnectionAttempts),
		natsgo.ReconnectWait(cfg.RetryDelay),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("notifications bus disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).
				Msg("notifications bus reconnected")
		}),
	}
}

func (b *natsBus) Publisher() message.Publisher { return b.publisher }

func (b *natsBus) Topic() string { return b.cfg.ExchangeName }

func (b *natsBus) Subscribe() (message.Subscriber, error) {
	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              b.cfg.URL,
		NatsOptions:      natsOptions(b.cfg),
		Unmarshaler:      &wmnats.NATSMarshaler{},
		QueueGroupPrefix: b.cfg.EventQueueName,
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: b.cfg.EventQueueName,
		},
	}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("connect notifications subscriber: %w", err)
	}
	return subscriber, nil
}

func (b *natsBus) Close() error {
	return b.publisher.Close()
}
