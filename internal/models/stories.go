// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

// Well-known story type ids, seeded by the initial migration.
const (
	StoryTypeBug                  int64 = 1
	StoryTypeFeature              int64 = 2
	StoryTypePrivateVulnerability int64 = 3
	StoryTypePublicVulnerability  int64 = 4
)

// Story is a unit of reported work: a bug, a feature or a vulnerability.
type Story struct {
	Base
	CreatorID   int64  `db:"creator_id" json:"creator_id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	StoryTypeID int64  `db:"story_type_id" json:"story_type_id"`
	Private     bool   `db:"private" json:"private"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// StoryType classifies stories and constrains which classifications a story
// may move between (see MayMutate).
type StoryType struct {
	Base
	Name       string `db:"name" json:"name"`
	Icon       string `db:"icon" json:"icon"`
	Restricted bool   `db:"restricted" json:"restricted"`
	Private    bool   `db:"private" json:"private"`
	Visible    bool   `db:"visible" json:"visible"`
}

// StoryTypeMutation is one allowed (from, to) story type transition.
type StoryTypeMutation struct {
	FromID int64 `db:"story_type_id_from" json:"story_type_id_from"`
	ToID   int64 `db:"story_type_id_to" json:"story_type_id_to"`
}

// StoryTagMaxLength bounds tag names.
const StoryTagMaxLength = 50

// StoryTag is a unique label attachable to many stories.
type StoryTag struct {
	Base
	Name string `db:"name" json:"name"`
}

// StoryPermission is the ACL row guarding a private story.
type StoryPermission struct {
	StoryID      int64 `db:"story_id" json:"story_id"`
	PermissionID int64 `db:"permission_id" json:"permission_id"`
}

// Comment is user commentary on a story. Comments soft-delete and may reply
// to another comment; the reply reference is lookup-only, never ownership.
type Comment struct {
	Base
	Content   string `db:"content" json:"content"`
	IsActive  bool   `db:"is_active" json:"is_active"`
	InReplyTo *int64 `db:"in_reply_to" json:"in_reply_to,omitempty"`
}

// CommentHistory preserves prior content each time a comment is edited.
type CommentHistory struct {
	Base
	CommentID int64  `db:"comment_id" json:"comment_id"`
	Content   string `db:"content" json:"content"`
}

// Timeline event types, a closed enum.
const (
	EventStoryCreated        = "story_created"
	EventStoryDetailsChanged = "story_details_changed"
	EventUserComment         = "user_comment"
	EventTagsAdded           = "tags_added"
	EventTagsDeleted         = "tags_deleted"

	EventTaskCreated         = "task_created"
	EventTaskStatusChanged   = "task_status_changed"
	EventTaskPriorityChanged = "task_priority_changed"
	EventTaskAssigneeChanged = "task_assignee_changed"
	EventTaskDetailsChanged  = "task_details_changed"
	EventTaskDeleted         = "task_deleted"

	EventWorklistCreated            = "worklist_created"
	EventWorklistDetailsChanged     = "worklist_details_changed"
	EventWorklistPermissionsChanged = "worklist_permissions_changed"
	EventWorklistFiltersChanged     = "worklist_filters_changed"
	EventWorklistContentsChanged    = "worklist_contents_changed"

	EventBoardCreated            = "board_created"
	EventBoardDetailsChanged     = "board_details_changed"
	EventBoardPermissionsChanged = "board_permissions_changed"
	EventBoardLanesChanged       = "board_lanes_changed"
)

// TimelineEventTypes enumerates every valid event_type value.
var TimelineEventTypes = []string{
	EventStoryCreated, EventStoryDetailsChanged, EventUserComment,
	EventTagsAdded, EventTagsDeleted,
	EventTaskCreated, EventTaskStatusChanged, EventTaskPriorityChanged,
	EventTaskAssigneeChanged, EventTaskDetailsChanged, EventTaskDeleted,
	EventWorklistCreated, EventWorklistDetailsChanged,
	EventWorklistPermissionsChanged, EventWorklistFiltersChanged,
	EventWorklistContentsChanged,
	EventBoardCreated, EventBoardDetailsChanged,
	EventBoardPermissionsChanged, EventBoardLanesChanged,
}

// ValidTimelineEventType reports whether t belongs to the closed enum.
func ValidTimelineEventType(t string) bool {
	for _, known := range TimelineEventTypes {
		if known == t {
			return true
		}
	}
	return false
}

// TimelineEvent is one append-only record describing a change to a story,
// worklist or board. EventInfo is a JSON blob whose shape depends on
// EventType.
type TimelineEvent struct {
	Base
	StoryID    *int64 `db:"story_id" json:"story_id,omitempty"`
	WorklistID *int64 `db:"worklist_id" json:"worklist_id,omitempty"`
	BoardID    *int64 `db:"board_id" json:"board_id,omitempty"`
	CommentID  *int64 `db:"comment_id" json:"comment_id,omitempty"`
	AuthorID   int64  `db:"author_id" json:"author_id"`
	EventType  string `db:"event_type" json:"event_type"`
	EventInfo  string `db:"event_info" json:"event_info"`
}
