// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package metrics exposes the service's Prometheus instrumentation: HTTP
// request counts and latency, database session outcomes, the notification
// pipeline and the worker pool. Everything registers through promauto; the
// /metrics endpoint serves the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_http_requests_total",
			Help: "Total HTTP requests by method, resource and status",
		},
		[]string{"method", "resource", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyboard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storyboard_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	SessionCommits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_db_session_commits_total",
			Help: "Database sessions committed",
		},
	)

	SessionRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_db_session_rollbacks_total",
			Help: "Database sessions rolled back",
		},
	)

	NotificationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_notifications_published_total",
			Help: "Mutation events published to the bus",
		},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_notifications_dropped_total",
			Help: "Mutation events lost to publish failures",
		},
	)

	WorkerEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_worker_events_processed_total",
			Help: "Events handled by worker plugins",
		},
		[]string{"plugin"},
	)

	WorkerEventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_worker_events_failed_total",
			Help: "Events a worker plugin failed to handle",
		},
		[]string{"plugin"},
	)

	SubscriptionEventsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_subscription_events_created_total",
			Help: "Per-subscriber notification rows materialized",
		},
	)

	TokensCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyboard_tokens_cleaned_total",
			Help: "Expired access tokens removed by the cleaner",
		},
	)
)

// RecordHTTPRequest observes one finished request.
func RecordHTTPRequest(method, resource string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, resource, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, resource).Observe(duration.Seconds())
}
