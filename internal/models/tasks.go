// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "inprogress"
	TaskReview     = "review"
	TaskMerged     = "merged"
	TaskInvalid    = "invalid"
)

// TaskStatuses enumerates every valid task status.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskMerged, TaskInvalid}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TaskPriorities enumerates every valid task priority.
var TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// ValidTaskStatus reports whether s is a known status.
func ValidTaskStatus(s string) bool {
	for _, known := range TaskStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// ValidTaskPriority reports whether p is a known priority.
func ValidTaskPriority(p string) bool {
	for _, known := range TaskPriorities {
		if known == p {
			return true
		}
	}
	return false
}

// Task is an actionable item attached to a story, scoped to one project and
// one branch of that project. The project/branch pair must be consistent:
// the branch belongs to the project.
type Task struct {
	Base
	CreatorID   int64  `db:"creator_id" json:"creator_id"`
	Title       string `db:"title" json:"title"`
	Status      string `db:"status" json:"status"`
	Priority    string `db:"priority" json:"priority"`
	StoryID     int64  `db:"story_id" json:"story_id"`
	ProjectID   int64  `db:"project_id" json:"project_id"`
	BranchID    *int64 `db:"branch_id" json:"branch_id,omitempty"`
	AssigneeID  *int64 `db:"assignee_id" json:"assignee_id,omitempty"`
	MilestoneID *int64 `db:"milestone_id" json:"milestone_id,omitempty"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}
