// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type branchRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	ProjectID      int64           `json:"project_id" validate:"required"`
	Expired        bool            `json:"expired"`
	ExpirationDate *models.UTCTime `json:"expiration_date,omitempty"`
}

func (rt *Router) createBranch(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req branchRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	branch := &models.Branch{
		Name:           req.Name,
		ProjectID:      req.ProjectID,
		Expired:        req.Expired,
		ExpirationDate: req.ExpirationDate,
	}
	if err := sessionFrom(r.Context()).CreateBranch(r.Context(), branch); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, branch)
}

func (rt *Router) getBranch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	branch, err := sessionFrom(r.Context()).GetBranch(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

func (rt *Router) listBranches(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		q = q.Eq("project_id", raw)
	}
	branches, err := sessionFrom(r.Context()).ListBranches(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (rt *Router) updateBranch(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req branchRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	branch, err := session.GetBranch(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	branch.Name = req.Name
	branch.Expired = req.Expired
	branch.ExpirationDate = req.ExpirationDate
	if err := session.UpdateBranch(r.Context(), branch); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

type milestoneRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	BranchID       int64           `json:"branch_id" validate:"required"`
	Expired        bool            `json:"expired"`
	ExpirationDate *models.UTCTime `json:"expiration_date,omitempty"`
}

func (rt *Router) createMilestone(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req milestoneRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	milestone := &models.Milestone{
		Name:           req.Name,
		BranchID:       req.BranchID,
		Expired:        req.Expired,
		ExpirationDate: req.ExpirationDate,
	}
	if err := sessionFrom(r.Context()).CreateMilestone(r.Context(), milestone); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, milestone)
}

func (rt *Router) getMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	milestone, err := sessionFrom(r.Context()).GetMilestone(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, milestone)
}

func (rt *Router) listMilestones(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		q = q.Eq("branch_id", raw)
	}
	milestones, err := sessionFrom(r.Context()).ListMilestones(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, milestones)
}

func (rt *Router) updateMilestone(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req milestoneRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	milestone, err := session.GetMilestone(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	milestone.Name = req.Name
	milestone.Expired = req.Expired
	milestone.ExpirationDate = req.ExpirationDate
	if err := session.UpdateMilestone(r.Context(), milestone); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, milestone)
}
