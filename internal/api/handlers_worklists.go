// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type worklistRequest struct {
	Title     string `json:"title" validate:"required,max=100"`
	ProjectID *int64 `json:"project_id,omitempty"`
	Private   bool   `json:"private"`
	Automatic bool   `json:"automatic"`
}

func (rt *Router) createWorklist(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req worklistRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	list := &models.Worklist{
		Title:     req.Title,
		CreatorID: currentUserID(r.Context()),
		ProjectID: req.ProjectID,
		Private:   req.Private,
		Automatic: req.Automatic,
	}
	if err := sessionFrom(r.Context()).CreateWorklist(r.Context(), list); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (rt *Router) getWorklist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	list, err := sessionFrom(r.Context()).GetWorklist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (rt *Router) listWorklists(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	values := r.URL.Query()
	if title := values.Get("title"); title != "" {
		q = q.Sub("title", title)
	}
	if raw := values.Get("creator_id"); raw != "" {
		q = q.Eq("creator_id", raw)
	}
	// Archived worklists only show up when asked for.
	if values.Get("archived") != "true" {
		q = q.Eq("archived", false)
	}
	lists, err := sessionFrom(r.Context()).ListWorklists(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (rt *Router) updateWorklist(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req worklistRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	list, err := session.GetWorklist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	list.Title = req.Title
	list.ProjectID = req.ProjectID
	list.Private = req.Private
	list.Automatic = req.Automatic
	if err := session.UpdateWorklist(r.Context(), list); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (rt *Router) archiveWorklist(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	if err := sessionFrom(r.Context()).ArchiveWorklist(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type worklistItemRequest struct {
	ItemType     string `json:"item_type" validate:"required,oneof=story task"`
	ItemID       int64  `json:"item_id" validate:"required"`
	ListPosition int    `json:"list_position" validate:"min=0"`
}

func (rt *Router) addWorklistItem(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	listID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req worklistItemRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	item := &models.WorklistItem{
		ListID:       listID,
		ItemType:     req.ItemType,
		ItemID:       req.ItemID,
		ListPosition: req.ListPosition,
	}
	if err := sessionFrom(r.Context()).AddWorklistItem(r.Context(), item); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) listWorklistItems(w http.ResponseWriter, r *http.Request) {
	listID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	items, err := sessionFrom(r.Context()).WorklistItems(r.Context(), listID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type moveItemRequest struct {
	ListPosition int `json:"list_position" validate:"min=0"`
}

func (rt *Router) moveWorklistItem(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	itemID, err := pathID(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "item_id")
		return
	}
	var req moveItemRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := sessionFrom(r.Context()).MoveWorklistItem(r.Context(), itemID, req.ListPosition); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) removeWorklistItem(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	itemID, err := pathID(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "item_id")
		return
	}
	if err := sessionFrom(r.Context()).RemoveWorklistItem(r.Context(), itemID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type filterCriterionRequest struct {
	Title    string `json:"title"`
	Field    string `json:"field" validate:"required,oneof=status priority project_id story_id assignee_id"`
	Value    string `json:"value" validate:"required"`
	Negative bool   `json:"negative"`
}

type worklistFilterRequest struct {
	FilterType string                   `json:"filter_type" validate:"required,oneof=story task"`
	Criteria   []filterCriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

type worklistFiltersRequest struct {
	Filters []worklistFilterRequest `json:"filters" validate:"dive"`
}

type worklistFilterResponse struct {
	models.WorklistFilter
	Criteria []models.FilterCriterion `json:"criteria"`
}

func (rt *Router) setWorklistFilters(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	listID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req worklistFiltersRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	filters := make([]models.WorklistFilter, len(req.Filters))
	criteria := make(map[int][]models.FilterCriterion, len(req.Filters))
	for i, f := range req.Filters {
		filters[i] = models.WorklistFilter{FilterType: f.FilterType}
		for _, c := range f.Criteria {
			criteria[i] = append(criteria[i], models.FilterCriterion{
				Title:    c.Title,
				Field:    c.Field,
				Value:    c.Value,
				Negative: c.Negative,
			})
		}
	}
	if err := sessionFrom(r.Context()).SetWorklistFilters(r.Context(), listID, filters, criteria); err != nil {
		writeStoreError(w, err)
		return
	}
	rt.writeWorklistFilters(w, r, listID)
}

func (rt *Router) getWorklistFilters(w http.ResponseWriter, r *http.Request) {
	listID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	rt.writeWorklistFilters(w, r, listID)
}

func (rt *Router) writeWorklistFilters(w http.ResponseWriter, r *http.Request, listID int64) {
	filters, criteria, err := sessionFrom(r.Context()).WorklistFilters(r.Context(), listID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]worklistFilterResponse, len(filters))
	for i, f := range filters {
		out[i] = worklistFilterResponse{WorklistFilter: f, Criteria: criteria[f.ID]}
	}
	writeJSON(w, http.StatusOK, out)
}
