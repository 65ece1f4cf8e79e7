// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type boardRequest struct {
	Title     string `json:"title" validate:"required,max=100"`
	ProjectID *int64 `json:"project_id,omitempty"`
	Private   bool   `json:"private"`
	Archived  bool   `json:"archived"`
}

func (rt *Router) createBoard(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req boardRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	board := &models.Board{
		Title:     req.Title,
		CreatorID: currentUserID(r.Context()),
		ProjectID: req.ProjectID,
		Private:   req.Private,
	}
	if err := sessionFrom(r.Context()).CreateBoard(r.Context(), board); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

func (rt *Router) getBoard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	board, err := sessionFrom(r.Context()).GetBoard(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (rt *Router) listBoards(w http.ResponseWriter, r *http.Request) {
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
	if values.Get("archived") != "true" {
		q = q.Eq("archived", false)
	}
	boards, err := sessionFrom(r.Context()).ListBoards(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (rt *Router) updateBoard(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req boardRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	board, err := session.GetBoard(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	board.Title = req.Title
	board.ProjectID = req.ProjectID
	board.Private = req.Private
	board.Archived = req.Archived
	if err := session.UpdateBoard(r.Context(), board); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type boardLanesRequest struct {
	Lanes []int64 `json:"lanes" validate:"required"`
}

func (rt *Router) setBoardLanes(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req boardLanesRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	if err := session.SetBoardLanes(r.Context(), id, req.Lanes); err != nil {
		writeStoreError(w, err)
		return
	}
	lanes, err := session.BoardLanes(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lanes)
}

func (rt *Router) getBoardLanes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	lanes, err := sessionFrom(r.Context()).BoardLanes(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lanes)
}

type dueDateRequest struct {
	Name    string          `json:"name" validate:"required,max=100"`
	Date    *models.UTCTime `json:"date,omitempty"`
	Private bool            `json:"private"`
}

func (rt *Router) createDueDate(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req dueDateRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	due := &models.DueDate{
		Name:      req.Name,
		Date:      req.Date,
		CreatorID: currentUserID(r.Context()),
		Private:   req.Private,
	}
	if err := sessionFrom(r.Context()).CreateDueDate(r.Context(), due); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, due)
}

func (rt *Router) getDueDate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	due, err := sessionFrom(r.Context()).GetDueDate(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}
