// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
)

func TestParsePath(t *testing.T) {
	ptr := func(v int64) *int64 { return &v }
	cases := []struct {
		path          string
		resource      string
		resourceID    *int64
		subResource   string
		subResourceID *int64
		ok            bool
	}{
		{path: "/v1/stories", resource: "story", ok: true},
		{path: "/v1/stories/42", resource: "story", resourceID: ptr(42), ok: true},
		{path: "/v1/stories/2/comments", resource: "story", resourceID: ptr(2), subResource: "comment", ok: true},
		{path: "/v1/project_groups/2/projects/1", resource: "project_group", resourceID: ptr(2), subResource: "project", subResourceID: ptr(1), ok: true},
		{path: "/v1/tasks/7", resource: "task", resourceID: ptr(7), ok: true},
		{path: "/v1/worklists/3/items", resource: "worklist", resourceID: ptr(3), subResource: "items", ok: true},
		{path: "/v1/openid/authorize", ok: false},
		{path: "/v1/openid/token", ok: false},
		{path: "/healthz", ok: false},
		{path: "/v1/stories/not-a-number", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resource, resourceID, subResource, subResourceID, ok := ParsePath(tc.path)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if resource != tc.resource {
				t.Fatalf("resource = %q, want %q", resource, tc.resource)
			}
			if !idEqual(resourceID, tc.resourceID) {
				t.Fatalf("resource id = %v, want %v", formatID(resourceID), formatID(tc.resourceID))
			}
			if subResource != tc.subResource {
				t.Fatalf("sub resource = %q, want %q", subResource, tc.subResource)
			}
			if !idEqual(subResourceID, tc.subResourceID) {
				t.Fatalf("sub resource id = %v, want %v", formatID(subResourceID), formatID(tc.subResourceID))
			}
		})
	}
}

func idEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatID(id *int64) any {
	if id == nil {
		return "<nil>"
	}
	return *id
}

func TestEnvelopeRoundTrip(t *testing.T) {
	storyID := int64(2)
	envelope := &Envelope{
		AuthorID:      1,
		Method:        "POST",
		Path:          "/v1/stories/2/comments",
		Status:        201,
		Resource:      "story",
		ResourceID:    &storyID,
		SubResource:   "comment",
		ResourceAfter: []byte(`{"id":9,"content":"ready for review"}`),
	}
	msg, err := envelope.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if msg.Metadata.Get("resource") != "story" || msg.Metadata.Get("method") != "POST" {
		t.Fatalf("metadata = %v, want resource/method routing keys", msg.Metadata)
	}

	got, err := Unmarshal(msg)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.AuthorID != 1 || got.Resource != "story" || got.SubResource != "comment" {
		t.Fatalf("round trip changed the envelope: %+v", got)
	}
	if got.ResourceID == nil || *got.ResourceID != 2 {
		t.Fatalf("resource id = %v, want 2", formatID(got.ResourceID))
	}
	if string(got.ResourceAfter) != `{"id":9,"content":"ready for review"}` {
		t.Fatalf("resource_after = %s", got.ResourceAfter)
	}
}

func TestChannelBusDelivers(t *testing.T) {
	cfg := &config.NotificationsConfig{
		Driver: "channel",
		NATS:   config.NATSConfig{ExchangeName: "storyboard"},
	}
	bus, err := NewBus(cfg)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	subscriber, err := bus.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := subscriber.Subscribe(ctx, bus.Topic())
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	publisher := NewPublisher(bus)
	publisher.Publish(&Envelope{Method: "POST", Path: "/v1/stories", Status: 201, Resource: "story"})

	select {
	case msg := <-messages:
		envelope, err := Unmarshal(msg)
		if err != nil {
			t.Fatalf("unmarshal delivered message: %v", err)
		}
		msg.Ack()
		if envelope.Resource != "story" || envelope.Method != "POST" {
			t.Fatalf("delivered envelope = %+v", envelope)
		}
	case <-ctx.Done():
		t.Fatal("no message delivered before timeout")
	}
}
