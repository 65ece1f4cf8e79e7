// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type commentRequest struct {
	Content   string `json:"content" validate:"required"`
	InReplyTo *int64 `json:"in_reply_to,omitempty"`
}

func (rt *Router) createComment(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	storyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req commentRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	comment := &models.Comment{Content: req.Content, InReplyTo: req.InReplyTo}
	session := sessionFrom(r.Context())
	if _, err := session.CreateComment(r.Context(), storyID, currentUserID(r.Context()), comment); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (rt *Router) listStoryComments(w http.ResponseWriter, r *http.Request) {
	storyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	comments, err := sessionFrom(r.Context()).StoryComments(r.Context(), storyID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (rt *Router) getComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	comment, err := sessionFrom(r.Context()).GetComment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (rt *Router) updateComment(w http.ResponseWriter, r *http.Request) {
	if !rt.cfg.API.EnableEditableComments {
		writeError(w, http.StatusMethodNotAllowed, "comment editing is disabled", "")
		return
	}
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req commentRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	comment, err := sessionFrom(r.Context()).UpdateComment(r.Context(), id, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (rt *Router) deleteComment(w http.ResponseWriter, r *http.Request) {
	if !rt.cfg.API.EnableEditableComments {
		writeError(w, http.StatusMethodNotAllowed, "comment editing is disabled", "")
		return
	}
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	if err := sessionFrom(r.Context()).DeleteComment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) getCommentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	history, err := sessionFrom(r.Context()).CommentHistory(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
