// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
)

// channelBus is the in-process transport: API and worker share one Go
// channel. Useful for single-binary deployments and tests; events do not
// survive a restart.
type channelBus struct {
	topic string
	ch    *gochannel.GoChannel
}

func newChannelBus(cfg *config.NATSConfig) (Bus, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, newBusLogger())
	return &channelBus{topic: cfg.ExchangeName, ch: ch}, nil
}

func (b *channelBus) Publisher() message.Publisher { return b.ch }

func (b *channelBus) Topic() string { return b.topic }

func (b *channelBus) Subscribe() (message.Subscriber, error) {
	return b.ch, nil
}

func (b *channelBus) Close() error {
	return b.ch.Close()
}
