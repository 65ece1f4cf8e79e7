// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package subscription materializes per-user notification rows from the
// event stream. Subscribers are resolved through the containment walk in
// the store (story to tasks, tasks to projects, projects to groups) and
// each one receives a SubscriptionEvent row.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

// subscribable are the envelope resources that can carry subscriptions.
var subscribable = map[string]bool{
	"story":         true,
	"task":          true,
	"project":       true,
	"project_group": true,
	"worklist":      true,
}

// Handler is the fan-out worker plugin.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "subscription" }

func (h *Handler) Enabled() bool { return true }

// Handle resolves the subscriber set for the envelope's target and writes
// one SubscriptionEvent per subscriber. Processing the same envelope twice
// appends duplicate rows; the subscriber set itself is deduplicated.
func (h *Handler) Handle(ctx context.Context, session *database.Session, envelope *notifications.Envelope) error {
	if envelope.ResourceID == nil || !subscribable[envelope.Resource] {
		return nil
	}
	targetID := *envelope.ResourceID

	// Membership changes notify the group's subscribers with both ids.
	if envelope.Resource == "project_group" && envelope.SubResourceID != nil {
		return h.groupMembershipEvent(ctx, session, envelope)
	}

	subscribers, err := session.SubscriberIDs(ctx, envelope.Resource, targetID)
	if err != nil {
		return fmt.Errorf("resolving subscribers for %s %d: %w", envelope.Resource, targetID, err)
	}

	if envelope.Resource == "worklist" {
		subscribers, err = filterWorklistSubscribers(ctx, session, subscribers)
		if err != nil {
			return err
		}
	}

	eventType, eventInfo, err := describe(ctx, session, envelope)
	if err != nil {
		return err
	}

	if envelope.Resource == "story" {
		subscribers, err = filterStoryVisibility(ctx, session, targetID, subscribers)
		if err != nil {
			return err
		}
	}

	for _, subscriberID := range subscribers {
		event := &models.SubscriptionEvent{
			SubscriberID: subscriberID,
			AuthorID:     envelope.AuthorID,
			EventType:    eventType,
			EventInfo:    eventInfo,
		}
		if err := session.CreateSubscriptionEvent(ctx, event); err != nil {
			return fmt.Errorf("writing subscription event: %w", err)
		}
		metrics.SubscriptionEventsCreated.Inc()
	}

	// A deleted root entity takes its subscriptions with it, after the
	// subscribers have been told about the deletion.
	if envelope.Method == "DELETE" && envelope.SubResource == "" {
		if err := session.DeleteTargetSubscriptions(ctx, envelope.Resource, targetID); err != nil {
			return fmt.Errorf("cleaning subscriptions for deleted %s %d: %w", envelope.Resource, targetID, err)
		}
	}
	return nil
}

// groupMembershipEvent emits project added/removed notifications to the
// group's direct subscribers.
func (h *Handler) groupMembershipEvent(ctx context.Context, session *database.Session, envelope *notifications.Envelope) error {
	groupID := *envelope.ResourceID
	projectID := *envelope.SubResourceID

	eventType := "project added to project_group"
	if envelope.Method == "DELETE" {
		eventType = "project removed from project_group"
	}
	info, err := json.Marshal(map[string]int64{
		"project_group_id": groupID,
		"project_id":       projectID,
	})
	if err != nil {
		return err
	}

	subscribers, err := session.SubscriberIDs(ctx, "project_group", groupID)
	if err != nil {
		return err
	}
	for _, subscriberID := range subscribers {
		event := &models.SubscriptionEvent{
			SubscriberID: subscriberID,
			AuthorID:     envelope.AuthorID,
			EventType:    eventType,
			EventInfo:    string(info),
		}
		if err := session.CreateSubscriptionEvent(ctx, event); err != nil {
			return err
		}
		metrics.SubscriptionEventsCreated.Inc()
	}
	return nil
}

// describe picks the event type and enriched event_info for the envelope.
func describe(ctx context.Context, session *database.Session, envelope *notifications.Envelope) (string, string, error) {
	verb := map[string]string{"POST": "created", "PUT": "updated", "DELETE": "deleted"}[envelope.Method]

	if envelope.Resource == "story" && envelope.SubResource != "" {
		switch envelope.SubResource {
		case "comment":
			return enrichComment(ctx, session, envelope)
		case "tag":
			return enrichTags(ctx, session, envelope)
		}
	}

	eventType := envelope.Resource + " " + verb
	info := map[string]any{envelope.Resource + "_id": *envelope.ResourceID}
	if len(envelope.ResourceAfter) > 0 {
		info["resource"] = json.RawMessage(envelope.ResourceAfter)
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return "", "", err
	}
	return eventType, string(payload), nil
}

// enrichComment joins the comment and its story into the event payload.
func enrichComment(ctx context.Context, session *database.Session, envelope *notifications.Envelope) (string, string, error) {
	storyID := *envelope.ResourceID
	story, err := session.GetStory(ctx, storyID)
	if err != nil {
		return "", "", err
	}

	var after struct {
		ID      int64  `json:"id"`
		Content string `json:"content"`
	}
	if len(envelope.ResourceAfter) > 0 {
		if err := json.Unmarshal(envelope.ResourceAfter, &after); err != nil {
			logging.Warn().Err(err).Msg("comment event payload undecodable")
		}
	}
	// The response snapshot is authoritative, but fall back to the stored
	// row when the envelope arrived without one.
	content := after.Content
	if after.ID != 0 && content == "" {
		if comment, err := session.GetComment(ctx, after.ID); err == nil {
			content = comment.Content
		}
	}

	payload, err := json.Marshal(map[string]any{
		"comment_id":      after.ID,
		"comment_content": content,
		"story_id":        story.ID,
		"story_title":     story.Title,
	})
	if err != nil {
		return "", "", err
	}
	return models.EventUserComment, string(payload), nil
}

// enrichTags carries the story context plus the tag list that changed.
func enrichTags(ctx context.Context, session *database.Session, envelope *notifications.Envelope) (string, string, error) {
	storyID := *envelope.ResourceID
	story, err := session.GetStory(ctx, storyID)
	if err != nil {
		return "", "", err
	}

	var tags []string
	if len(envelope.ResourceAfter) > 0 {
		if err := json.Unmarshal(envelope.ResourceAfter, &tags); err != nil {
			logging.Warn().Err(err).Msg("tag event payload undecodable")
		}
	}

	eventType := models.EventTagsAdded
	if envelope.Method == "DELETE" {
		eventType = models.EventTagsDeleted
	}
	payload, err := json.Marshal(map[string]any{
		"story_id":    story.ID,
		"story_title": story.Title,
		"tags":        tags,
	})
	if err != nil {
		return "", "", err
	}
	return eventType, string(payload), nil
}

// filterWorklistSubscribers keeps only users who opted into worklist
// notifications.
func filterWorklistSubscribers(ctx context.Context, session *database.Session, subscribers []int64) ([]int64, error) {
	kept := subscribers[:0]
	for _, subscriberID := range subscribers {
		pref, err := session.GetPreference(ctx, subscriberID, models.PrefReceiveWorklistNotifications)
		if err != nil {
			return nil, err
		}
		if pref == "true" {
			kept = append(kept, subscriberID)
		}
	}
	return kept, nil
}

// filterStoryVisibility drops subscribers who cannot see the story.
func filterStoryVisibility(ctx context.Context, session *database.Session, storyID int64, subscribers []int64) ([]int64, error) {
	story, err := session.GetStory(ctx, storyID)
	if err != nil {
		// A deleted story has nothing left to guard.
		if errors.Is(err, database.ErrNotFound) {
			return subscribers, nil
		}
		return nil, err
	}
	if !story.Private {
		return subscribers, nil
	}
	kept := subscribers[:0]
	for _, subscriberID := range subscribers {
		visible, err := session.StoryVisibleTo(ctx, story, subscriberID)
		if err != nil {
			return nil, err
		}
		if visible {
			kept = append(kept, subscriberID)
		}
	}
	return kept, nil
}
