// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"net/http"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

type subscriptionRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=story task project project_group worklist"`
	TargetID   int64  `json:"target_id" validate:"required"`
}

func (rt *Router) createSubscription(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req subscriptionRequest
	if err := rt.decode(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	sub := &models.Subscription{
		UserID:     currentUserID(r.Context()),
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	}
	if err := sessionFrom(r.Context()).CreateSubscription(r.Context(), sub); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (rt *Router) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	sub, err := sessionFrom(r.Context()).GetSubscription(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (rt *Router) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	caller := userFrom(r.Context())
	values := r.URL.Query()
	if raw := values.Get("user_id"); raw != "" && caller.IsSuperuser {
		q = q.Eq("user_id", raw)
	} else {
		q = q.Eq("user_id", caller.ID)
	}
	if raw := values.Get("target_type"); raw != "" {
		q = q.Eq("target_type", raw)
	}
	if raw := values.Get("target_id"); raw != "" {
		q = q.Eq("target_id", raw)
	}
	subs, err := sessionFrom(r.Context()).ListSubscriptions(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (rt *Router) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	session := sessionFrom(r.Context())
	sub, err := session.GetSubscription(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	caller := userFrom(r.Context())
	if sub.UserID != caller.ID && !caller.IsSuperuser {
		writeError(w, http.StatusForbidden, "cannot remove another user's subscription", "")
		return
	}
	if err := session.DeleteSubscription(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listSubscriptionEvents(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	q, err := listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	caller := userFrom(r.Context())
	if raw := r.URL.Query().Get("subscriber_id"); raw != "" && caller.IsSuperuser {
		q = q.Eq("subscriber_id", raw)
	} else {
		q = q.Eq("subscriber_id", caller.ID)
	}
	events, err := sessionFrom(r.Context()).ListSubscriptionEvents(r.Context(), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (rt *Router) getSubscriptionEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	event, err := sessionFrom(r.Context()).GetSubscriptionEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (rt *Router) deleteSubscriptionEvent(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "id")
		return
	}
	session := sessionFrom(r.Context())
	event, err := session.GetSubscriptionEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	caller := userFrom(r.Context())
	if event.SubscriberID != caller.ID && !caller.IsSuperuser {
		writeError(w, http.StatusForbidden, "cannot remove another user's notification", "")
		return
	}
	if err := session.DeleteSubscriptionEvent(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
