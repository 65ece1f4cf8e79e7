// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"errors"
	"sort"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

const subscriptionColumns = "id, created_at, updated_at, user_id, target_type, target_id"

// CreateSubscription registers a user's interest in a target. The target
// must exist; subscribing twice is a duplicate error.
func (s *Session) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if !models.ValidSubscriptionTarget(sub.TargetType) {
		return NewClientError("invalid subscription target type %q", sub.TargetType)
	}
	if err := s.checkTargetExists(ctx, sub.TargetType, sub.TargetID); err != nil {
		return err
	}
	touch(&sub.Base)
	id, err := s.insert(ctx, `
		INSERT INTO subscriptions (created_at, updated_at, user_id, target_type, target_id)
		VALUES (:created_at, :updated_at, :user_id, :target_type, :target_id)`, sub)
	if err != nil {
		return err
	}
	sub.ID = id
	return nil
}

func (s *Session) checkTargetExists(ctx context.Context, targetType string, targetID int64) error {
	var err error
	switch targetType {
	case models.TargetStory:
		_, err = s.GetStory(ctx, targetID)
	case models.TargetTask:
		_, err = s.GetTask(ctx, targetID)
	case models.TargetProject:
		_, err = s.GetProject(ctx, targetID)
	case models.TargetProjectGroup:
		_, err = s.GetProjectGroup(ctx, targetID)
	case models.TargetWorklist:
		_, err = s.GetWorklist(ctx, targetID)
	}
	return err
}

// GetSubscription fetches a subscription by id.
func (s *Session) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.getOne(ctx, &sub,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubscriptions returns subscriptions matching q.
func (s *Session) ListSubscriptions(ctx context.Context, q Query) ([]models.Subscription, error) {
	var subs []models.Subscription
	sortable := map[string]bool{
		"user_id": true, "target_type": true, "target_id": true,
		"created_at": true, "updated_at": true,
	}
	err := s.selectList(ctx, &subs, "subscriptions", subscriptionColumns, sortable, q, "")
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteSubscription removes one subscription.
func (s *Session) DeleteSubscription(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
}

// DeleteTargetSubscriptions removes every subscription pointed at a target.
// Called when the target itself is deleted.
func (s *Session) DeleteTargetSubscriptions(ctx context.Context, targetType string, targetID int64) error {
	return s.exec(ctx,
		"DELETE FROM subscriptions WHERE target_type = ? AND target_id = ?",
		targetType, targetID)
}

// directSubscriberIDs returns users subscribed to exactly this target.
func (s *Session) directSubscriberIDs(ctx context.Context, targetType string, targetID int64) ([]int64, error) {
	var ids []int64
	err := s.tx.SelectContext(ctx, &ids,
		"SELECT user_id FROM subscriptions WHERE target_type = ? AND target_id = ?",
		targetType, targetID)
	if err != nil {
		return nil, classifyError(err)
	}
	return ids, nil
}

// SubscriberIDs resolves the full audience of a change to one target by
// walking the containment graph: a task change also notifies subscribers of
// its story, its project and every group holding that project; a story
// change reaches out through its tasks' projects the same way.
func (s *Session) SubscriberIDs(ctx context.Context, targetType string, targetID int64) ([]int64, error) {
	seen := map[int64]bool{}

	collect := func(tt string, tid int64) error {
		ids, err := s.directSubscriberIDs(ctx, tt, tid)
		if err != nil {
			return err
		}
		for _, id := range ids {
			seen[id] = true
		}
		return nil
	}

	collectProject := func(projectID int64) error {
		if err := collect(models.TargetProject, projectID); err != nil {
			return err
		}
		groupIDs, err := s.ProjectGroupIDs(ctx, projectID)
		if err != nil {
			return err
		}
		for _, gid := range groupIDs {
			if err := collect(models.TargetProjectGroup, gid); err != nil {
				return err
			}
		}
		return nil
	}

	collectStory := func(storyID int64) error {
		if err := collect(models.TargetStory, storyID); err != nil {
			return err
		}
		tasks, err := s.StoryTasks(ctx, storyID)
		if err != nil {
			return err
		}
		for i := range tasks {
			if err := collect(models.TargetTask, tasks[i].ID); err != nil {
				return err
			}
			if err := collectProject(tasks[i].ProjectID); err != nil {
				return err
			}
		}
		return nil
	}

	switch targetType {
	case models.TargetTask:
		if err := collect(models.TargetTask, targetID); err != nil {
			return nil, err
		}
		task, err := s.GetTask(ctx, targetID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Deleted task: fall back to its direct subscribers only.
				break
			}
			return nil, err
		}
		if err := collect(models.TargetStory, task.StoryID); err != nil {
			return nil, err
		}
		if err := collectProject(task.ProjectID); err != nil {
			return nil, err
		}
	case models.TargetStory:
		if err := collectStory(targetID); err != nil {
			return nil, err
		}
	case models.TargetProject:
		if err := collectProject(targetID); err != nil {
			return nil, err
		}
	case models.TargetProjectGroup, models.TargetWorklist:
		if err := collect(targetType, targetID); err != nil {
			return nil, err
		}
	default:
		return nil, NewClientError("invalid subscription target type %q", targetType)
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CreateSubscriptionEvent materializes one per-subscriber notification row.
func (s *Session) CreateSubscriptionEvent(ctx context.Context, event *models.SubscriptionEvent) error {
	touch(&event.Base)
	id, err := s.insert(ctx, `
		INSERT INTO subscription_events (created_at, updated_at, subscriber_id,
			author_id, event_type, event_info)
		VALUES (:created_at, :updated_at, :subscriber_id,
			:author_id, :event_type, :event_info)`, event)
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// GetSubscriptionEvent fetches one notification row.
func (s *Session) GetSubscriptionEvent(ctx context.Context, id int64) (*models.SubscriptionEvent, error) {
	var event models.SubscriptionEvent
	err := s.getOne(ctx, &event, `
		SELECT id, created_at, updated_at, subscriber_id, author_id, event_type, event_info
		FROM subscription_events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListSubscriptionEvents returns notification rows matching q; callers
// filter by subscriber.
func (s *Session) ListSubscriptionEvents(ctx context.Context, q Query) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	sortable := map[string]bool{
		"subscriber_id": true, "author_id": true, "event_type": true,
		"created_at": true, "updated_at": true,
	}
	err := s.selectList(ctx, &events, "subscription_events",
		"id, created_at, updated_at, subscriber_id, author_id, event_type, event_info",
		sortable, q, "")
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteSubscriptionEvent removes a consumed notification row.
func (s *Session) DeleteSubscriptionEvent(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "DELETE FROM subscription_events WHERE id = ?", id)
}
