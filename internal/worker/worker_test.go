// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
	"github.com/openstack-infra/storyboard-sub001/internal/subscription"
)

// TestEventReachesSubscriptionRow drives one envelope through the bus, the
// worker and the fan-out plugin, and checks the materialized notification.
func TestEventReachesSubscriptionRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := &config.DatabaseConfig{
		Driver:       "sqlite3",
		Connection:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	store, err := database.Open(ctx, dbCfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	bus, err := notifications.NewBus(&config.NotificationsConfig{
		Driver: "channel",
		NATS:   config.NATSConfig{ExchangeName: "storyboard"},
	})
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	var author, watcher *models.User
	var story *models.Story
	err = store.WithSession(ctx, func(session *database.Session) error {
		author = &models.User{OpenID: "author", Email: "author@example.org", IsActive: true, EnableLogin: true}
		if err := session.CreateUser(ctx, author); err != nil {
			return err
		}
		watcher = &models.User{OpenID: "watcher", Email: "watcher@example.org", IsActive: true, EnableLogin: true}
		if err := session.CreateUser(ctx, watcher); err != nil {
			return err
		}
		story = &models.Story{CreatorID: author.ID, Title: "Flaky gate job"}
		if err := session.CreateStory(ctx, story); err != nil {
			return err
		}
		sub := &models.Subscription{
			UserID:     watcher.ID,
			TargetType: models.TargetStory,
			TargetID:   story.ID,
		}
		return session.CreateSubscription(ctx, sub)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	subscriber := NewSubscriber(0, store, bus, []Plugin{subscription.NewHandler()})
	done := make(chan error, 1)
	go func() { done <- subscriber.Serve(ctx) }()

	// The channel bus does not persist; give the worker a beat to attach
	// before publishing.
	time.Sleep(100 * time.Millisecond)

	publisher := notifications.NewPublisher(bus)
	storyID := story.ID
	publisher.Publish(&notifications.Envelope{
		AuthorID:   author.ID,
		Method:     "PUT",
		Path:       "/v1/stories/1",
		Status:     200,
		Resource:   "story",
		ResourceID: &storyID,
	})

	deadline := time.Now().Add(5 * time.Second)
	var events []models.SubscriptionEvent
	for time.Now().Before(deadline) {
		err := store.WithSession(ctx, func(session *database.Session) error {
			var listErr error
			events, listErr = session.ListSubscriptionEvents(ctx,
				database.Query{}.Eq("subscriber_id", watcher.ID))
			return listErr
		})
		if err != nil {
			t.Fatalf("poll events: %v", err)
		}
		if len(events) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(events) != 1 {
		t.Fatalf("subscription events = %d, want 1", len(events))
	}
	if events[0].EventType != "story updated" || events[0].AuthorID != author.ID {
		t.Fatalf("event = %+v", events[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
