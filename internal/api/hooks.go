// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"bytes"
	"net/http"
	"sort"
	"time"

	"github.com/openstack-infra/storyboard-sub001/internal/metrics"
)

// Hook priorities. Hooks run outermost-first in ascending priority order:
// the session opens before auth consults the database, auth resolves the
// user before validation, and the notification hook sits innermost so it
// can observe the final response.
const (
	priorityPreAuth        = 1
	priorityAuth           = 10
	priorityValidation     = 50
	priorityPostValidation = 51
	priorityDefault        = 100
)

type hook struct {
	name     string
	priority int
	wrap     func(http.Handler) http.Handler
}

// sortHooks orders hooks by priority, name breaking ties.
func sortHooks(hooks []hook) []hook {
	sorted := make([]hook, len(hooks))
	copy(sorted, hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority < sorted[j].priority
		}
		return sorted[i].name < sorted[j].name
	})
	return sorted
}

// statusRecorder captures the response status and body so the notification
// hook can snapshot what the handler returned.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// metricsHook times every request.
func metricsHook() hook {
	return hook{
		name:     "metrics",
		priority: priorityPreAuth - 1,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				metrics.HTTPRequestsInFlight.Inc()
				defer metrics.HTTPRequestsInFlight.Dec()

				start := time.Now()
				recorder := newStatusRecorder(w)
				next.ServeHTTP(recorder, r)

				resource := "unknown"
				if name, _, _, _, ok := parsePathResource(r.URL.Path); ok {
					resource = name
				}
				metrics.RecordHTTPRequest(r.Method, resource, recorder.status, time.Since(start))
			})
		},
	}
}
