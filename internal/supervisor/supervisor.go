// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package supervisor builds the suture root both daemons run under. Dead
// services restart with backoff; supervisor events go through the process
// log stream via the sutureslog adapter.
package supervisor

import (
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/openstack-infra/storyboard-sub001/internal/logging"
)

// Suture's production defaults, spelled out so the values are visible here.
const (
	failureThreshold = 5.0
	failureDecay     = 30.0
	failureBackoff   = 15 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// NewRoot returns the root supervisor for a daemon.
func NewRoot(name string) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	return suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: failureThreshold,
		FailureDecay:     failureDecay,
		FailureBackoff:   failureBackoff,
		Timeout:          shutdownTimeout,
	})
}
