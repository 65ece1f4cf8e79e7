// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

var taskSortable = map[string]bool{
	"title": true, "status": true, "priority": true, "story_id": true,
	"project_id": true, "assignee_id": true, "created_at": true, "updated_at": true,
}

const taskColumns = "id, created_at, updated_at, creator_id, title, status, priority, story_id, project_id, branch_id, assignee_id, milestone_id, is_active"

// validateTask checks the enum fields and the branch/project and
// milestone/branch consistency rules.
func (s *Session) validateTask(ctx context.Context, task *models.Task) error {
	if !models.ValidTaskStatus(task.Status) {
		return NewClientError("invalid task status %q", task.Status)
	}
	if !models.ValidTaskPriority(task.Priority) {
		return NewClientError("invalid task priority %q", task.Priority)
	}
	if err := validUnicode(task.Title); err != nil {
		return err
	}
	if _, err := s.GetProject(ctx, task.ProjectID); err != nil {
		return err
	}
	if task.BranchID != nil {
		branch, err := s.GetBranch(ctx, *task.BranchID)
		if err != nil {
			return err
		}
		if branch.ProjectID != task.ProjectID {
			return NewClientError("branch %d does not belong to project %d",
				*task.BranchID, task.ProjectID)
		}
	}
	if task.MilestoneID != nil {
		if task.BranchID == nil {
			return NewClientError("a milestone requires a branch")
		}
		milestone, err := s.GetMilestone(ctx, *task.MilestoneID)
		if err != nil {
			return err
		}
		if milestone.BranchID != *task.BranchID {
			return NewClientError("milestone %d does not belong to branch %d",
				*task.MilestoneID, *task.BranchID)
		}
	}
	return nil
}

// CreateTask inserts a task. A task without an explicit branch lands on the
// project's master branch.
func (s *Session) CreateTask(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.BranchID == nil {
		master, err := s.GetMasterBranch(ctx, task.ProjectID)
		if err != nil {
			return err
		}
		task.BranchID = &master.ID
	}
	if err := s.validateTask(ctx, task); err != nil {
		return err
	}
	if _, err := s.GetStory(ctx, task.StoryID); err != nil {
		return err
	}
	task.IsActive = true
	touch(&task.Base)
	id, err := s.insert(ctx, `
		INSERT INTO tasks (created_at, updated_at, creator_id, title, status,
			priority, story_id, project_id, branch_id, assignee_id,
			milestone_id, is_active)
		VALUES (:created_at, :updated_at, :creator_id, :title, :status,
			:priority, :story_id, :project_id, :branch_id, :assignee_id,
			:milestone_id, :is_active)`, task)
	if err != nil {
		return err
	}
	task.ID = id
	return nil
}

// GetTask fetches an active task by id.
func (s *Session) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	err := s.getOne(ctx, &task,
		fmt.Sprintf("SELECT %s FROM tasks WHERE id = ? AND is_active = ?", taskColumns),
		id, true)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns active tasks matching q.
func (s *Session) ListTasks(ctx context.Context, q Query) ([]models.Task, error) {
	var tasks []models.Task
	err := s.selectList(ctx, &tasks, "tasks", taskColumns, taskSortable, q,
		"is_active = ?", true)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// StoryTasks returns the active tasks of one story.
func (s *Session) StoryTasks(ctx context.Context, storyID int64) ([]models.Task, error) {
	var tasks []models.Task
	err := s.tx.SelectContext(ctx, &tasks,
		fmt.Sprintf("SELECT %s FROM tasks WHERE story_id = ? AND is_active = ? ORDER BY id", taskColumns),
		storyID, true)
	if err != nil {
		return nil, classifyError(err)
	}
	return tasks, nil
}

// UpdateTask rewrites a task's mutable columns.
func (s *Session) UpdateTask(ctx context.Context, task *models.Task) error {
	if _, err := s.GetTask(ctx, task.ID); err != nil {
		return err
	}
	if err := s.validateTask(ctx, task); err != nil {
		return err
	}
	task.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE tasks SET updated_at = ?, title = ?, status = ?, priority = ?,
			project_id = ?, branch_id = ?, assignee_id = ?, milestone_id = ?
		WHERE id = ? AND is_active = ?`,
		task.UpdatedAt, task.Title, task.Status, task.Priority, task.ProjectID,
		task.BranchID, task.AssigneeID, task.MilestoneID, task.ID, true)
}

// DeleteTask soft-deletes a task and hard-deletes its subscriptions.
func (s *Session) DeleteTask(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx,
		"UPDATE tasks SET updated_at = ?, is_active = ? WHERE id = ? AND is_active = ?",
		models.Now(), false, id, true); err != nil {
		return err
	}
	return s.DeleteTargetSubscriptions(ctx, models.TargetTask, id)
}
