// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type projectRequest struct {
	Name               string `json:"name" validate:"required,min=3,max=100"`
	Description        string `json:"description"`
	RepoURL            string `json:"repo_url"`
	AutocreateBranches bool   `json:"autocreate_branches"`
}

func (rt *Router) createProject(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req projectRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	project := &models.Project{
		Name:               req.Name,
		Description:        req.Description,
		RepoURL:            req.RepoURL,
		AutocreateBranches: req.AutocreateBranches,
	}
	if err := sessionFrom(r.Context()).CreateProject(r.Context(), project); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (rt *Router) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	project, err := sessionFrom(r.Context()).GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (rt *Router) listProjects(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		q = q.Sub("name", name)
	}
	projects, err := sessionFrom(r.Context()).ListProjects(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (rt *Router) updateProject(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req projectRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	project, err := session.GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	project.Name = req.Name
	project.Description = req.Description
	project.RepoURL = req.RepoURL
	project.AutocreateBranches = req.AutocreateBranches
	if err := session.UpdateProject(r.Context(), project); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (rt *Router) searchProjects(w http.ResponseWriter, r *http.Request) {
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
	projects, err := sessionFrom(r.Context()).SearchProjects(r.Context(), term, q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

type projectGroupRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Title string `json:"title" validate:"required,max=255"`
}

func (rt *Router) createProjectGroup(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req projectGroupRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	group := &models.ProjectGroup{Name: req.Name, Title: req.Title}
	if err := sessionFrom(r.Context()).CreateProjectGroup(r.Context(), group); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (rt *Router) getProjectGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	group, err := sessionFrom(r.Context()).GetProjectGroup(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (rt *Router) listProjectGroups(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		q = q.Sub("name", name)
	}
	groups, err := sessionFrom(r.Context()).ListProjectGroups(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (rt *Router) updateProjectGroup(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	var req projectGroupRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	group, err := session.GetProjectGroup(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	group.Name = req.Name
	group.Title = req.Title
	if err := session.UpdateProjectGroup(r.Context(), group); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (rt *Router) deleteProjectGroup(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	if err := sessionFrom(r.Context()).DeleteProjectGroup(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listGroupProjects(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	session := sessionFrom(r.Context())
	ids, err := session.GroupProjectIDs(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	projects := make([]models.Project, 0, len(ids))
	for _, projectID := range ids {
		project, err := session.GetProject(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		projects = append(projects, *project)
	}
	writeJSON(w, http.StatusOK, projects)
}

func (rt *Router) addProjectToGroup(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	groupID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	projectID, err := pathID(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "project_id")
		return
	}
	if err := sessionFrom(r.Context()).AddProjectToGroup(r.Context(), groupID, projectID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) removeProjectFromGroup(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	groupID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	projectID, err := pathID(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "project_id")
		return
	}
	if err := sessionFrom(r.Context()).RemoveProjectFromGroup(r.Context(), groupID, projectID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
