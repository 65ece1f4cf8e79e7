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

type userRequest struct {
	OpenID      string `json:"openid" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,max=255"`
	IsSuperuser bool   `json:"is_superuser"`
	EnableLogin *bool  `json:"enable_login,omitempty"`
}

func (rt *Router) createUser(w http.ResponseWriter, r *http.Request) {
	caller := userFrom(r.Context())
	if caller == nil || !caller.IsSuperuser {
		writeError(w, http.StatusForbidden, "superuser required", "")
		return
	}
	var req userRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	user := &models.User{
		OpenID:      req.OpenID,
		Email:       req.Email,
		FullName:    req.FullName,
		IsSuperuser: req.IsSuperuser,
	}
	if err := sessionFrom(r.Context()).CreateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (rt *Router) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	user, err := sessionFrom(r.Context()).GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) getSelf(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) listUsers(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	values := r.URL.Query()
	if name := values.Get("full_name"); name != "" {
		q = q.Sub("full_name", name)
	}
	if email := values.Get("email"); email != "" {
		q = q.Sub("email", email)
	}
	users, err := sessionFrom(r.Context()).ListUsers(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) updateUser(w http.ResponseWriter, r *http.Request) {
	caller := userFrom(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	if id != caller.ID && !caller.IsSuperuser {
		writeError(w, http.StatusForbidden, "cannot modify another user", "")
		return
	}
	var req userRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	session := sessionFrom(r.Context())
	user, err := session.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	user.Email = req.Email
	user.FullName = req.FullName
	// Privilege and login flags stay superuser-only.
	if caller.IsSuperuser {
		user.IsSuperuser = req.IsSuperuser
		if req.EnableLogin != nil {
			user.EnableLogin = *req.EnableLogin
		}
	}
	if err := session.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) searchUsers(w http.ResponseWriter, r *http.Request) {
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
	users, err := sessionFrom(r.Context()).SearchUsers(r.Context(), term, q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// preferencesAllowed rejects access to another user's preferences.
func preferencesAllowed(w http.ResponseWriter, r *http.Request) (int64, bool) {
	caller := userFrom(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "")
		return 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return 0, false
	}
	if id != caller.ID && !caller.IsSuperuser {
		writeError(w, http.StatusForbidden, "preferences are private", "")
		return 0, false
	}
	return id, true
}

func (rt *Router) getPreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := preferencesAllowed(w, r)
	if !ok {
		return
	}
	prefs, err := sessionFrom(r.Context()).GetPreferences(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (rt *Router) setPreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := preferencesAllowed(w, r)
	if !ok {
		return
	}
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	session := sessionFrom(r.Context())
	if err := session.SetPreferences(r.Context(), id, values); err != nil {
		writeStoreError(w, err)
		return
	}
	prefs, err := session.GetPreferences(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type teamRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (rt *Router) createTeam(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req teamRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	team := &models.Team{Name: req.Name}
	if err := sessionFrom(r.Context()).CreateTeam(r.Context(), team); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (rt *Router) getTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	team, err := sessionFrom(r.Context()).GetTeam(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (rt *Router) listTeams(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		q = q.Sub("name", name)
	}
	teams, err := sessionFrom(r.Context()).ListTeams(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (rt *Router) addTeamMember(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "user_id")
		return
	}
	if err := sessionFrom(r.Context()).AddTeamMember(r.Context(), teamID, userID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "user_id")
		return
	}
	if err := sessionFrom(r.Context()).RemoveTeamMember(r.Context(), teamID, userID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
