// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

// parsePathResource is the path grammar shared with the notification
// pipeline.
func parsePathResource(path string) (string, *int64, string, *int64, bool) {
	return notifications.ParsePath(path)
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut ||
		method == http.MethodDelete
}

// hasJSONBody reports whether the request carries a JSON body the
// validation and scrub hooks should inspect. The token endpoint posts
// form-encoded bodies, which pass through untouched.
func hasJSONBody(r *http.Request) bool {
	if !isMutating(r.Method) || r.Body == nil || r.ContentLength == 0 {
		return false
	}
	contentType := r.Header.Get("Content-Type")
	return contentType == "" || strings.Contains(contentType, "json")
}

// afterCommit collects callbacks to run once the request transaction has
// committed. The notification hook uses it so events only describe state a
// concurrent reader can already see.
type afterCommit struct {
	fns []func()
}

const afterCommitKey contextKey = "after_commit"

func afterCommitFrom(ctx context.Context) *afterCommit {
	ac, _ := ctx.Value(afterCommitKey).(*afterCommit)
	return ac
}

// sessionHook opens one transaction per request, commits on success and
// rolls back on any 4xx or 5xx. Rolled back sessions never re-raise.
func (rt *Router) sessionHook() hook {
	return hook{
		name:     "session",
		priority: priorityPreAuth,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				session, err := rt.store.NewSession(r.Context())
				if err != nil {
					writeStoreError(w, err)
					return
				}
				defer session.Rollback()

				ac := &afterCommit{}
				ctx := withSession(r.Context(), session)
				ctx = context.WithValue(ctx, afterCommitKey, ac)

				recorder := newStatusRecorder(w)
				next.ServeHTTP(recorder, r.WithContext(ctx))

				if recorder.status >= 400 {
					session.Rollback()
					metrics.SessionRollbacks.Inc()
					return
				}
				if err := session.Commit(); err != nil {
					metrics.SessionRollbacks.Inc()
					logging.Error().Err(err).Msg("commit request session")
					return
				}
				metrics.SessionCommits.Inc()
				for _, fn := range ac.fns {
					fn()
				}
			})
		},
	}
}

// authHook resolves the bearer token to a user. Anonymous requests pass
// through without a user; handlers that mutate require one. An expired
// token is deleted on sight and rejected.
func (rt *Router) authHook() hook {
	return hook{
		name:     "auth",
		priority: priorityAuth,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				header := r.Header.Get("Authorization")
				if header == "" {
					next.ServeHTTP(w, r)
					return
				}
				value, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					writeError(w, http.StatusUnauthorized, "malformed authorization header", "")
					return
				}

				session := sessionFrom(r.Context())
				token, err := session.GetAccessToken(r.Context(), value)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid access token", "")
					return
				}
				if token.Expired(models.Now()) {
					if err := session.DeleteAccessToken(r.Context(), token.ID); err != nil {
						logging.Warn().Err(err).Msg("delete expired token")
					}
					writeError(w, http.StatusUnauthorized, "access token expired", "")
					return
				}

				user, err := session.GetUser(r.Context(), token.UserID)
				if err != nil || !user.IsActive || !user.EnableLogin {
					writeError(w, http.StatusUnauthorized, "account is not active", "")
					return
				}

				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
			})
		},
	}
}

// validationHook rejects malformed JSON bodies on mutating requests before
// any handler runs.
func (rt *Router) validationHook() hook {
	return hook{
		name:     "validation",
		priority: priorityValidation,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !hasJSONBody(r) {
					next.ServeHTTP(w, r)
					return
				}
				body, err := io.ReadAll(r.Body)
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable request body", "")
					return
				}
				if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
					writeError(w, http.StatusBadRequest, "request body is not valid JSON", "")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				next.ServeHTTP(w, r)
			})
		},
	}
}

// scrubHook strips server-owned fields from inbound JSON objects; clients
// never set id or timestamps.
func (rt *Router) scrubHook() hook {
	return hook{
		name:     "scrub",
		priority: priorityPostValidation,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !hasJSONBody(r) {
					next.ServeHTTP(w, r)
					return
				}
				body, err := io.ReadAll(r.Body)
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable request body", "")
					return
				}
				var fields map[string]json.RawMessage
				if err := json.Unmarshal(body, &fields); err == nil {
					changed := false
					for _, owned := range models.ServerOwnedFields {
						if _, present := fields[owned]; present {
							delete(fields, owned)
							changed = true
						}
					}
					if changed {
						if body, err = json.Marshal(fields); err != nil {
							writeError(w, http.StatusBadRequest, "request body is not valid JSON", "")
							return
						}
					}
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				next.ServeHTTP(w, r)
			})
		},
	}
}

// notificationHook publishes one envelope per successful mutation. It
// snapshots the resource before the handler runs, captures the response
// body as the after image, and defers the publish to after commit. Publish
// failures never fail the request.
func (rt *Router) notificationHook() hook {
	return hook{
		name:     "notification",
		priority: priorityDefault,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if rt.publisher == nil || !isMutating(r.Method) {
					next.ServeHTTP(w, r)
					return
				}
				resource, resourceID, subResource, subResourceID, ok := parsePathResource(r.URL.Path)
				if !ok {
					next.ServeHTTP(w, r)
					return
				}

				var before json.RawMessage
				if resourceID != nil && r.Method != http.MethodPost {
					before = rt.snapshot(r.Context(), resource, *resourceID)
				}

				recorder := newStatusRecorder(w)
				next.ServeHTTP(recorder, r)
				if recorder.status < 200 || recorder.status >= 300 {
					return
				}

				envelope := &notifications.Envelope{
					AuthorID:       currentUserID(r.Context()),
					Method:         r.Method,
					Path:           r.URL.Path,
					Status:         recorder.status,
					Resource:       resource,
					ResourceID:     resourceID,
					SubResource:    subResource,
					SubResourceID:  subResourceID,
					ResourceBefore: before,
				}
				if r.Method != http.MethodDelete && recorder.body.Len() > 0 {
					after := make(json.RawMessage, recorder.body.Len())
					copy(after, recorder.body.Bytes())
					envelope.ResourceAfter = after
				}

				if ac := afterCommitFrom(r.Context()); ac != nil {
					ac.fns = append(ac.fns, func() { rt.publisher.Publish(envelope) })
				} else {
					rt.publisher.Publish(envelope)
				}
			})
		},
	}
}

// snapshot reads the current row of a resource as JSON, for the before
// image. Unknown resources and missing rows return nil.
func (rt *Router) snapshot(ctx context.Context, resource string, id int64) json.RawMessage {
	session := sessionFrom(ctx)
	if session == nil {
		return nil
	}
	var row any
	var err error
	switch resource {
	case "story":
		row, err = session.GetStory(ctx, id)
	case "task":
		row, err = session.GetTask(ctx, id)
	case "project":
		row, err = session.GetProject(ctx, id)
	case "project_group":
		row, err = session.GetProjectGroup(ctx, id)
	case "branch":
		row, err = session.GetBranch(ctx, id)
	case "milestone":
		row, err = session.GetMilestone(ctx, id)
	case "comment":
		row, err = session.GetComment(ctx, id)
	case "subscription":
		row, err = session.GetSubscription(ctx, id)
	case "worklist":
		row, err = session.GetWorklist(ctx, id)
	case "board":
		row, err = session.GetBoard(ctx, id)
	case "user":
		row, err = session.GetUser(ctx, id)
	case "due_date":
		row, err = session.GetDueDate(ctx, id)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	return data
}
