// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

func worklistFixture(t *testing.T, session *Session, automatic bool) (*models.User, *models.Worklist) {
	t.Helper()
	ctx := context.Background()
	user := mustCreateUser(t, session, "lists")
	list := &models.Worklist{Title: "Review queue", CreatorID: user.ID, Automatic: automatic}
	if err := session.CreateWorklist(ctx, list); err != nil {
		t.Fatalf("create worklist: %v", err)
	}
	return user, list
}

func TestWorklistItemOrdering(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	_, list := worklistFixture(t, session, false)
	user, project, story := taskFixture(t, session)

	var taskIDs []int64
	for _, title := range []string{"first", "second", "third"} {
		task := &models.Task{
			CreatorID: user.ID,
			Title:     title,
			StoryID:   story.ID,
			ProjectID: project.ID,
		}
		if err := session.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task %q: %v", title, err)
		}
		taskIDs = append(taskIDs, task.ID)
	}

	for i, id := range taskIDs {
		item := &models.WorklistItem{
			ListID:       list.ID,
			ItemType:     models.ItemTask,
			ItemID:       id,
			ListPosition: i,
		}
		if err := session.AddWorklistItem(ctx, item); err != nil {
			t.Fatalf("add item %d: %v", i, err)
		}
	}

	// Inserting at the head shifts everything down.
	head := &models.WorklistItem{
		ListID:       list.ID,
		ItemType:     models.ItemStory,
		ItemID:       story.ID,
		ListPosition: 0,
	}
	if err := session.AddWorklistItem(ctx, head); err != nil {
		t.Fatalf("add head item: %v", err)
	}

	items, err := session.WorklistItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	wantIDs := []int64{story.ID, taskIDs[0], taskIDs[1], taskIDs[2]}
	if len(items) != len(wantIDs) {
		t.Fatalf("item count = %d, want %d", len(items), len(wantIDs))
	}
	for i, item := range items {
		if item.ItemID != wantIDs[i] || item.ListPosition != i {
			t.Fatalf("position %d holds item %d at %d, want item %d",
				i, item.ItemID, item.ListPosition, wantIDs[i])
		}
	}

	// Move the head to the end; positions close behind it.
	if err := session.MoveWorklistItem(ctx, head.ID, 3); err != nil {
		t.Fatalf("move item: %v", err)
	}
	items, err = session.WorklistItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items after move: %v", err)
	}
	wantIDs = []int64{taskIDs[0], taskIDs[1], taskIDs[2], story.ID}
	for i, item := range items {
		if item.ItemID != wantIDs[i] || item.ListPosition != i {
			t.Fatalf("after move, position %d holds item %d, want item %d",
				i, item.ItemID, wantIDs[i])
		}
	}

	// Removing the middle item closes the gap.
	if err := session.RemoveWorklistItem(ctx, items[1].ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	items, err = session.WorklistItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items after remove: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("item count after remove = %d, want 3", len(items))
	}
	for i, item := range items {
		if item.ListPosition != i {
			t.Fatalf("gap not closed: position %d holds list_position %d", i, item.ListPosition)
		}
	}
}

func TestAddWorklistItemRejectsBadType(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	_, list := worklistFixture(t, session, false)

	item := &models.WorklistItem{ListID: list.ID, ItemType: "branch", ItemID: 1}
	err := session.AddWorklistItem(ctx, item)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("add item with bad type = %v, want ClientError", err)
	}
}

func TestSetWorklistFiltersRequiresAutomatic(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	_, list := worklistFixture(t, session, false)

	filters := []models.WorklistFilter{{FilterType: "task"}}
	err := session.SetWorklistFilters(ctx, list.ID, filters, nil)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("set filters on manual worklist = %v, want ClientError", err)
	}
}

func TestSetWorklistFiltersReplaces(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	_, list := worklistFixture(t, session, true)

	first := []models.WorklistFilter{{FilterType: "task"}}
	firstCriteria := map[int][]models.FilterCriterion{
		0: {{Title: "Merged", Field: "status", Value: models.TaskMerged}},
	}
	if err := session.SetWorklistFilters(ctx, list.ID, first, firstCriteria); err != nil {
		t.Fatalf("set filters: %v", err)
	}

	second := []models.WorklistFilter{{FilterType: "task"}, {FilterType: "story"}}
	secondCriteria := map[int][]models.FilterCriterion{
		0: {
			{Title: "Todo", Field: "status", Value: models.TaskTodo},
			{Title: "Urgent", Field: "priority", Value: models.PriorityHigh},
		},
	}
	if err := session.SetWorklistFilters(ctx, list.ID, second, secondCriteria); err != nil {
		t.Fatalf("replace filters: %v", err)
	}

	filters, criteria, err := session.WorklistFilters(ctx, list.ID)
	if err != nil {
		t.Fatalf("read filters: %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("filter count = %d, want 2", len(filters))
	}
	if got := len(criteria[filters[0].ID]); got != 2 {
		t.Fatalf("criteria count on first filter = %d, want 2", got)
	}
	if got := len(criteria[filters[1].ID]); got != 0 {
		t.Fatalf("criteria count on second filter = %d, want 0", got)
	}
}

func TestTaskMatchesFilter(t *testing.T) {
	assignee := int64(7)
	task := &models.Task{
		Title:      "Patch the scheduler",
		Status:     models.TaskTodo,
		Priority:   models.PriorityHigh,
		StoryID:    3,
		ProjectID:  5,
		AssigneeID: &assignee,
	}
	unassigned := &models.Task{
		Title:     "Write the docs",
		Status:    models.TaskTodo,
		Priority:  models.PriorityLow,
		StoryID:   3,
		ProjectID: 5,
	}

	cases := []struct {
		name     string
		task     *models.Task
		criteria []models.FilterCriterion
		want     bool
	}{
		{
			name:     "single status match",
			task:     task,
			criteria: []models.FilterCriterion{{Field: "status", Value: "todo"}},
			want:     true,
		},
		{
			name: "all criteria must hold",
			task: task,
			criteria: []models.FilterCriterion{
				{Field: "status", Value: "todo"},
				{Field: "priority", Value: "low"},
			},
			want: false,
		},
		{
			name:     "id fields compare as strings",
			task:     task,
			criteria: []models.FilterCriterion{{Field: "project_id", Value: "5"}, {Field: "story_id", Value: "3"}},
			want:     true,
		},
		{
			name:     "negative inverts",
			task:     task,
			criteria: []models.FilterCriterion{{Field: "priority", Value: "low", Negative: true}},
			want:     true,
		},
		{
			name:     "negative inverts a match away",
			task:     task,
			criteria: []models.FilterCriterion{{Field: "status", Value: "todo", Negative: true}},
			want:     false,
		},
		{
			name:     "assignee on unassigned task",
			task:     unassigned,
			criteria: []models.FilterCriterion{{Field: "assignee_id", Value: "7"}},
			want:     false,
		},
		{
			name:     "unknown field matches nothing",
			task:     task,
			criteria: []models.FilterCriterion{{Field: "title", Value: "Patch the scheduler"}},
			want:     false,
		},
		{
			name:     "empty criteria match nothing",
			task:     task,
			criteria: nil,
			want:     false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TaskMatchesFilter(tc.task, tc.criteria); got != tc.want {
				t.Fatalf("TaskMatchesFilter = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBoardLanes(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, first := worklistFixture(t, session, false)
	second := &models.Worklist{Title: "In flight", CreatorID: user.ID}
	if err := session.CreateWorklist(ctx, second); err != nil {
		t.Fatalf("create worklist: %v", err)
	}

	board := &models.Board{Title: "Nova sprint", CreatorID: user.ID}
	if err := session.CreateBoard(ctx, board); err != nil {
		t.Fatalf("create board: %v", err)
	}

	if err := session.SetBoardLanes(ctx, board.ID, []int64{first.ID, second.ID}); err != nil {
		t.Fatalf("set lanes: %v", err)
	}
	lanes, err := session.BoardLanes(ctx, board.ID)
	if err != nil {
		t.Fatalf("read lanes: %v", err)
	}
	if len(lanes) != 2 || lanes[0].ListID != first.ID || lanes[1].ListID != second.ID {
		t.Fatalf("lanes = %+v, want lists [%d %d] in order", lanes, first.ID, second.ID)
	}

	// Reordering replaces the lane set.
	if err := session.SetBoardLanes(ctx, board.ID, []int64{second.ID}); err != nil {
		t.Fatalf("replace lanes: %v", err)
	}
	lanes, err = session.BoardLanes(ctx, board.ID)
	if err != nil {
		t.Fatalf("read lanes again: %v", err)
	}
	if len(lanes) != 1 || lanes[0].ListID != second.ID {
		t.Fatalf("lanes after replace = %+v, want [%d]", lanes, second.ID)
	}
}
