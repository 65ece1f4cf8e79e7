// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

// Worklist item types; the polymorphic (item_type, item_id) pair follows the
// same discriminated pattern subscriptions use.
const (
	ItemStory = "story"
	ItemTask  = "task"
)

// Worklist is an ordered, optionally filter-populated list of stories and
// tasks. Automatic worklists carry filters instead of manual items.
type Worklist struct {
	Base
	Title     string `db:"title" json:"title"`
	CreatorID int64  `db:"creator_id" json:"creator_id"`
	ProjectID *int64 `db:"project_id" json:"project_id,omitempty"`
	Private   bool   `db:"private" json:"private"`
	Archived  bool   `db:"archived" json:"archived"`
	Automatic bool   `db:"automatic" json:"automatic"`
}

// WorklistItem is one entry of a manual worklist. Items hard-delete.
type WorklistItem struct {
	Base
	ListID         int64    `db:"list_id" json:"list_id"`
	ItemType       string   `db:"item_type" json:"item_type"`
	ItemID         int64    `db:"item_id" json:"item_id"`
	ListPosition   int      `db:"list_position" json:"list_position"`
	Archived       bool     `db:"archived" json:"archived"`
	DisplayDueDate *int64   `db:"display_due_date" json:"display_due_date,omitempty"`
	ResolvedAt     *UTCTime `db:"resolved_at" json:"resolved_at,omitempty"`
}

// WorklistFilter groups criteria for an automatic worklist. An item belongs
// to the worklist when it matches every criterion of at least one filter.
type WorklistFilter struct {
	Base
	ListID     int64  `db:"list_id" json:"list_id"`
	FilterType string `db:"filter_type" json:"filter_type"`
}

// FilterCriterion is one (field, value, negative) test within a filter.
type FilterCriterion struct {
	Base
	FilterID int64  `db:"filter_id" json:"filter_id"`
	Title    string `db:"title" json:"title"`
	Field    string `db:"field" json:"field"`
	Value    string `db:"value" json:"value"`
	Negative bool   `db:"negative" json:"negative"`
}

// Board is an ordered set of worklist lanes.
type Board struct {
	Base
	Title     string `db:"title" json:"title"`
	CreatorID int64  `db:"creator_id" json:"creator_id"`
	ProjectID *int64 `db:"project_id" json:"project_id,omitempty"`
	Private   bool   `db:"private" json:"private"`
	Archived  bool   `db:"archived" json:"archived"`
}

// BoardWorklist is one lane of a board. Lanes hard-delete.
type BoardWorklist struct {
	Base
	BoardID  int64 `db:"board_id" json:"board_id"`
	ListID   int64 `db:"list_id" json:"list_id"`
	Position int   `db:"position" json:"position"`
}

// DueDate is a named date optionally guarded by an ACL and associated with
// stories, tasks, boards and worklists.
type DueDate struct {
	Base
	Name      string   `db:"name" json:"name"`
	Date      *UTCTime `db:"date" json:"date,omitempty"`
	CreatorID int64    `db:"creator_id" json:"creator_id"`
	Private   bool     `db:"private" json:"private"`
}
