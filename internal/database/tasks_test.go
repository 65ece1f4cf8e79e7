// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"testing"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// fixture builds the minimal user/project/story triple task tests need.
func taskFixture(t *testing.T, session *Session) (*models.User, *models.Project, *models.Story) {
	t.Helper()
	ctx := context.Background()
	user := mustCreateUser(t, session, "worker")
	project := &models.Project{Name: "openstack/nova", IsActive: true}
	if err := session.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	story := &models.Story{CreatorID: user.ID, Title: "Fix scheduling"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	return user, project, story
}

func TestCreateTaskDefaults(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, project, story := taskFixture(t, session)

	task := &models.Task{
		CreatorID: user.ID,
		Title:     "Patch the scheduler",
		StoryID:   story.ID,
		ProjectID: project.ID,
	}
	if err := session.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != models.TaskTodo {
		t.Errorf("status = %q, want todo", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}

	// A task without a branch lands on the project's master branch.
	if task.BranchID == nil {
		t.Fatal("branch_id not defaulted")
	}
	master, err := session.GetMasterBranch(ctx, project.ID)
	if err != nil {
		t.Fatalf("get master branch: %v", err)
	}
	if *task.BranchID != master.ID {
		t.Errorf("branch_id = %d, want master %d", *task.BranchID, master.ID)
	}
}

func TestCreateTaskRejectsForeignBranch(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, project, story := taskFixture(t, session)

	other := &models.Project{Name: "openstack/neutron", IsActive: true}
	if err := session.CreateProject(ctx, other); err != nil {
		t.Fatalf("create project: %v", err)
	}
	foreign, err := session.GetMasterBranch(ctx, other.ID)
	if err != nil {
		t.Fatalf("get master: %v", err)
	}

	task := &models.Task{
		CreatorID: user.ID,
		Title:     "Cross-wired task",
		StoryID:   story.ID,
		ProjectID: project.ID,
		BranchID:  &foreign.ID,
	}
	if err := session.CreateTask(ctx, task); err == nil {
		t.Fatal("expected branch/project mismatch to be rejected")
	}
}

func TestCreateTaskMilestoneRequiresBranch(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, project, story := taskFixture(t, session)

	master, err := session.GetMasterBranch(ctx, project.ID)
	if err != nil {
		t.Fatalf("get master: %v", err)
	}
	milestone := &models.Milestone{Name: "queens-1", BranchID: master.ID}
	if err := session.CreateMilestone(ctx, milestone); err != nil {
		t.Fatalf("create milestone: %v", err)
	}

	task := &models.Task{
		CreatorID:   user.ID,
		Title:       "Milestoned task",
		StoryID:     story.ID,
		ProjectID:   project.ID,
		BranchID:    &master.ID,
		MilestoneID: &milestone.ID,
	}
	if err := session.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task with milestone: %v", err)
	}
}

func TestListTasksKeysetPagination(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, project, story := taskFixture(t, session)

	for i := 0; i < 5; i++ {
		task := &models.Task{
			CreatorID: user.ID,
			Title:     "Task",
			StoryID:   story.ID,
			ProjectID: project.ID,
		}
		if err := session.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task %d: %v", i, err)
		}
	}

	limit := 2
	first, err := session.ListTasks(ctx, Query{Limit: &limit})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first page = %d tasks, want 2", len(first))
	}

	marker := first[len(first)-1].ID
	second, err := session.ListTasks(ctx, Query{Limit: &limit, Marker: &marker})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("second page = %d tasks, want 2", len(second))
	}
	if second[0].ID <= marker {
		t.Fatalf("second page starts at %d, want > marker %d", second[0].ID, marker)
	}
}

func TestListTasksInvalidSortKey(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)

	_, err := session.ListTasks(context.Background(), Query{SortField: "surprise"})
	if err == nil {
		t.Fatal("expected invalid sort key error")
	}
}
