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

type storyRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	StoryTypeID int64    `json:"story_type_id"`
	Private     bool     `json:"private"`
	Tags        []string `json:"tags"`
}

func (rt *Router) createStory(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req storyRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	session := sessionFrom(r.Context())
	story := &models.Story{
		CreatorID:   currentUserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		StoryTypeID: req.StoryTypeID,
		Private:     req.Private,
	}
	if err := session.CreateStory(r.Context(), story); err != nil {
		writeStoreError(w, err)
		return
	}
	if len(req.Tags) > 0 {
		if _, err := session.AddStoryTags(r.Context(), story.ID, req.Tags); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	info, _ := json.Marshal(map[string]any{
		"story_id": story.ID, "story_title": story.Title,
	})
	event := &models.TimelineEvent{
		StoryID:   &story.ID,
		AuthorID:  story.CreatorID,
		EventType: models.EventStoryCreated,
		EventInfo: string(info),
	}
	if err := session.CreateTimelineEvent(r.Context(), event); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (rt *Router) getStory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	session := sessionFrom(r.Context())
	story, err := session.GetStory(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	visible, err := session.StoryVisibleTo(r.Context(), story, currentUserID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !visible {
		writeError(w, http.StatusNotFound, "object not found", "")
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (rt *Router) listStories(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if title := r.URL.Query().Get("title"); title != "" {
		q = q.Sub("title", title)
	}
	if raw := r.URL.Query().Get("creator_id"); raw != "" {
		q = q.Eq("creator_id", raw)
	}
	// Private stories stay out of anonymous listings; per-story ACL checks
	// happen on direct reads.
	if userFrom(r.Context()) == nil {
		q = q.Eq("private", false)
	}
	stories, err := sessionFrom(r.Context()).ListStories(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (rt *Router) updateStory(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req storyRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	session := sessionFrom(r.Context())
	story, err := session.GetStory(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	story.Title = req.Title
	story.Description = req.Description
	if req.StoryTypeID != 0 {
		story.StoryTypeID = req.StoryTypeID
	}
	story.Private = req.Private
	if err := session.UpdateStory(r.Context(), story); err != nil {
		writeStoreError(w, err)
		return
	}

	info, _ := json.Marshal(map[string]any{
		"story_id": story.ID, "story_title": story.Title,
	})
	event := &models.TimelineEvent{
		StoryID:   &story.ID,
		AuthorID:  currentUserID(r.Context()),
		EventType: models.EventStoryDetailsChanged,
		EventInfo: string(info),
	}
	if err := session.CreateTimelineEvent(r.Context(), event); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (rt *Router) deleteStory(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	if err := sessionFrom(r.Context()).DeleteStory(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listStoryTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	tasks, err := sessionFrom(r.Context()).StoryTasks(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (rt *Router) listStoryEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if eventType := r.URL.Query().Get("event_type"); eventType != "" {
		q = q.Eq("event_type", eventType)
	}
	events, err := sessionFrom(r.Context()).StoryTimeline(r.Context(), id, q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (rt *Router) searchStories(w http.ResponseWriter, r *http.Request) {
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
	stories, err := sessionFrom(r.Context()).SearchStories(r.Context(), term, q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

func (rt *Router) listStoryTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	tags, err := sessionFrom(r.Context()).StoryTags(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (rt *Router) addStoryTags(w http.ResponseWriter, r *http.Request) {
	rt.mutateStoryTags(w, r, true)
}

func (rt *Router) removeStoryTags(w http.ResponseWriter, r *http.Request) {
	rt.mutateStoryTags(w, r, false)
}

func (rt *Router) mutateStoryTags(w http.ResponseWriter, r *http.Request, add bool) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req tagsRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	session := sessionFrom(r.Context())
	var changed []string
	eventType := models.EventTagsAdded
	if add {
		changed, err = session.AddStoryTags(r.Context(), id, req.Tags)
	} else {
		eventType = models.EventTagsDeleted
		changed, err = session.RemoveStoryTags(r.Context(), id, req.Tags)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if len(changed) > 0 {
		info, _ := json.Marshal(map[string]any{"story_id": id, "tags": changed})
		event := &models.TimelineEvent{
			StoryID:   &id,
			AuthorID:  currentUserID(r.Context()),
			EventType: eventType,
			EventInfo: string(info),
		}
		if err := session.CreateTimelineEvent(r.Context(), event); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, changed)
}
