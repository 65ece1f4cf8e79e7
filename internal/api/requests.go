// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
)

// maxPageSize caps the limit parameter.
const maxPageSize = 500

// pathID reads a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// listQuery builds the store query from the uniform pagination and sorting
// parameters every collection endpoint accepts.
func listQuery(r *http.Request) (database.Query, error) {
	var q database.Query
	values := r.URL.Query()

	if raw := values.Get("marker"); raw != "" {
		marker, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid marker %q", raw)
		}
		q.Marker = &marker
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		q.Limit = &limit
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return q, fmt.Errorf("invalid offset %q", raw)
		}
		q.Offset = &offset
	}
	q.SortField = values.Get("sort_field")
	q.SortDir = values.Get("sort_dir")
	return q, nil
}

// decode parses the request body into dest and runs struct validation.
func (rt *Router) decode(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return database.NewClientError("invalid request body: %v", err)
	}
	return rt.validate.Struct(dest)
}

// requireUser rejects anonymous mutation attempts.
func requireUser(w http.ResponseWriter, r *http.Request) bool {
	if userFrom(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "")
		return false
	}
	return true
}
