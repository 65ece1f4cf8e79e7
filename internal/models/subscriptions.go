// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

// Subscription target types. Subscription.TargetID has no single foreign
// key; the referenced table is discriminated by TargetType.
const (
	TargetTask         = "task"
	TargetStory        = "story"
	TargetProject      = "project"
	TargetProjectGroup = "project_group"
	TargetWorklist     = "worklist"
)

// SubscriptionTargetTypes enumerates every valid subscription target.
var SubscriptionTargetTypes = []string{
	TargetTask, TargetStory, TargetProject, TargetProjectGroup, TargetWorklist,
}

// ValidSubscriptionTarget reports whether t is a known target type.
func ValidSubscriptionTarget(t string) bool {
	for _, known := range SubscriptionTargetTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Subscription is a user's standing interest in an entity. Subscriptions
// hard-delete when their target is deleted.
type Subscription struct {
	Base
	UserID     int64  `db:"user_id" json:"user_id"`
	TargetType string `db:"target_type" json:"target_type"`
	TargetID   int64  `db:"target_id" json:"target_id"`
}

// SubscriptionEvent is a materialized per-subscriber notification row
// produced by the fan-out worker.
type SubscriptionEvent struct {
	Base
	SubscriberID int64  `db:"subscriber_id" json:"subscriber_id"`
	AuthorID     int64  `db:"author_id" json:"author_id"`
	EventType    string `db:"event_type" json:"event_type"`
	EventInfo    string `db:"event_info" json:"event_info"`
}

// PrefReceiveWorklistNotifications is the preference key gating worklist
// fan-out; only users who set it to "true" receive worklist notifications.
const PrefReceiveWorklistNotifications = "receive_notifications_worklists"
