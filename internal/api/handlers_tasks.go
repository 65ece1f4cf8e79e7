// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type taskRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Status      string `json:"status" validate:"omitempty,oneof=todo inprogress invalid review merged"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	StoryID     int64  `json:"story_id"`
	ProjectID   int64  `json:"project_id"`
	BranchID    *int64 `json:"branch_id,omitempty"`
	AssigneeID  *int64 `json:"assignee_id,omitempty"`
	MilestoneID *int64 `json:"milestone_id,omitempty"`
}

func (rt *Router) createTask(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req taskRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	if req.StoryID == 0 {
		writeError(w, http.StatusBadRequest, "a task must belong to a story", "story_id")
		return
	}

	session := sessionFrom(r.Context())
	task := &models.Task{
		CreatorID:   currentUserID(r.Context()),
		Title:       req.Title,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryID:     req.StoryID,
		ProjectID:   req.ProjectID,
		BranchID:    req.BranchID,
		AssigneeID:  req.AssigneeID,
		MilestoneID: req.MilestoneID,
	}
	if err := session.CreateTask(r.Context(), task); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := rt.taskEvent(r, task, models.EventTaskCreated); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (rt *Router) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	task, err := sessionFrom(r.Context()).GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) listTasks(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	values := r.URL.Query()
	for _, field := range []string{"story_id", "project_id", "assignee_id", "status", "priority"} {
		if raw := values.Get(field); raw != "" {
			q = q.Eq(field, raw)
		}
	}
	tasks, err := sessionFrom(r.Context()).ListTasks(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (rt *Router) updateTask(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req taskRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	session := sessionFrom(r.Context())
	task, err := session.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Pick the most specific event type for the change. Status changes
	// dominate because they drive automatic story status rollups downstream.
	eventType := models.EventTaskDetailsChanged
	switch {
	case req.Status != "" && req.Status != task.Status:
		eventType = models.EventTaskStatusChanged
	case req.Priority != "" && req.Priority != task.Priority:
		eventType = models.EventTaskPriorityChanged
	case !int64PtrEq(req.AssigneeID, task.AssigneeID):
		eventType = models.EventTaskAssigneeChanged
	}

	task.Title = req.Title
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.ProjectID != 0 {
		task.ProjectID = req.ProjectID
	}
	if req.BranchID != nil {
		task.BranchID = req.BranchID
	}
	task.AssigneeID = req.AssigneeID
	task.MilestoneID = req.MilestoneID

	if err := session.UpdateTask(r.Context(), task); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := rt.taskEvent(r, task, eventType); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) deleteTask(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	session := sessionFrom(r.Context())
	task, err := session.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := session.DeleteTask(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := rt.taskEvent(r, task, models.EventTaskDeleted); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) searchTasks(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing search term", "q")
		return
	}
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	tasks, err := sessionFrom(r.Context()).SearchTasks(r.Context(), term, q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// taskEvent records a task change on the parent story's timeline.
func (rt *Router) taskEvent(r *http.Request, task *models.Task, eventType string) error {
	info, _ := json.Marshal(map[string]any{
		"task_id": task.ID, "task_title": task.Title, "story_id": task.StoryID,
	})
	event := &models.TimelineEvent{
		StoryID:   &task.StoryID,
		AuthorID:  currentUserID(r.Context()),
		EventType: eventType,
		EventInfo: string(info),
	}
	return sessionFrom(r.Context()).CreateTimelineEvent(r.Context(), event)
}

func int64PtrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
