// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// apiError is the error body every failure renders: a message and, for
// validation failures, the offending field.
type apiError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, apiError{Message: message, Field: field})
}

// writeStoreError maps the store taxonomy onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var clientErr *database.ClientError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, database.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, database.ErrReferenceViolation):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, database.ErrInvalidSortKey),
		errors.Is(err, database.ErrValueError),
		errors.Is(err, database.ErrInvalidUnicode):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.As(err, &clientErr):
		writeError(w, http.StatusBadRequest, clientErr.Msg, "")
	case errors.As(err, &validationErrs):
		first := validationErrs[0]
		writeError(w, http.StatusBadRequest,
			"invalid value for field "+first.Field(), first.Field())
	case errors.Is(err, database.ErrDeadlock),
		errors.Is(err, database.ErrConnection):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "")
	default:
		logging.Error().Err(err).Msg("unhandled request error")
		writeError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
