// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// Version is stamped by the build; main overrides it.
var Version = "dev"

type systemInfo struct {
	Version string `json:"version"`
}

func (rt *Router) getSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, systemInfo{Version: Version})
}

// authorize resolves the identity asserted by the deployment's login proxy
// into a local user and mints a single-use authorization code. With a
// redirect_uri the code travels back as a 302, otherwise as JSON.
func (rt *Router) authorize(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	openid := values.Get("openid")
	if openid == "" {
		writeError(w, http.StatusBadRequest, "missing openid", "openid")
		return
	}
	state := values.Get("state")

	session := sessionFrom(r.Context())
	user, err := session.GetUserByOpenID(r.Context(), openid)
	switch {
	case errors.Is(err, database.ErrNotFound):
		user = &models.User{
			OpenID:      openid,
			Email:       values.Get("email"),
			FullName:    values.Get("full_name"),
			IsActive:    true,
			EnableLogin: true,
		}
		if err := session.CreateUser(r.Context(), user); err != nil {
			writeStoreError(w, err)
			return
		}
	case err != nil:
		writeStoreError(w, err)
		return
	}
	if !user.IsActive || !user.EnableLogin {
		writeError(w, http.StatusUnauthorized, "login disabled for this account", "")
		return
	}

	now := models.Now()
	user.LastLogin = &now
	if err := session.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}

	code, err := rt.oauth.MintCode(r.Context(), session, user.ID, state)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if redirect := values.Get("redirect_uri"); redirect != "" {
		target, err := url.Parse(redirect)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid redirect_uri", "redirect_uri")
			return
		}
		q := target.Query()
		q.Set("code", code.Code)
		q.Set("state", state)
		target.RawQuery = q.Encode()
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code.Code, "state": state})
}

// token is the OAuth token endpoint. It accepts form or query parameters.
func (rt *Router) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body", "")
		return
	}
	session := sessionFrom(r.Context())

	switch grant := r.Form.Get("grant_type"); grant {
	case "authorization_code":
		code := r.Form.Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, "missing code", "code")
			return
		}
		pair, err := rt.oauth.Exchange(r.Context(), session, code)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	case "refresh_token":
		refresh := r.Form.Get("refresh_token")
		if refresh == "" {
			writeError(w, http.StatusBadRequest, "missing refresh_token", "refresh_token")
			return
		}
		pair, err := rt.oauth.Refresh(r.Context(), session, refresh)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	default:
		writeError(w, http.StatusBadRequest, "unsupported grant_type", "grant_type")
	}
}
