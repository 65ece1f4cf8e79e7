// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package notifications

import (
	"regexp"
	"strconv"
)

// pathPattern matches versioned API paths of the form
// /v1/<resource>/<id>/<subresource>/<id>, each trailing segment optional.
var pathPattern = regexp.MustCompile(`^/v1/([a-z_]+)/?([0-9]+)?/?([a-z]+)?/?([0-9]+)?$`)

// singularNames maps URL collection segments to resource names. The table
// is closed: a segment outside it (including the openid auth endpoints)
// produces no notification.
var singularNames = map[string]string{
	"stories":             "story",
	"projects":            "project",
	"project_groups":      "project_group",
	"tasks":               "task",
	"branches":            "branch",
	"milestones":          "milestone",
	"timeline_events":     "timeline_event",
	"users":               "user",
	"teams":               "team",
	"tags":                "tag",
	"task_statuses":       "task_status",
	"subscriptions":       "subscription",
	"subscription_events": "subscription_event",
	"systeminfo":          "systeminfo",
	"worklists":           "worklist",
	"boards":              "board",
	"comments":            "comment",
	"due_dates":           "due_date",
}

// ParsePath decomposes a request path into resource coordinates. ok is
// false for paths that do not name a notifiable resource.
func ParsePath(path string) (resource string, resourceID *int64, subResource string, subResourceID *int64, ok bool) {
	match := pathPattern.FindStringSubmatch(path)
	if match == nil {
		return "", nil, "", nil, false
	}

	resource, ok = singularNames[match[1]]
	if !ok {
		return "", nil, "", nil, false
	}

	resourceID = parseID(match[2])
	if match[3] != "" {
		// Sub-collections singularize through the same table; an action
		// verb segment passes through unchanged.
		if name, known := singularNames[match[3]]; known {
			subResource = name
		} else {
			subResource = match[3]
		}
	}
	subResourceID = parseID(match[4])
	return resource, resourceID, subResource, subResourceID, true
}

func parseID(segment string) *int64 {
	if segment == "" {
		return nil
	}
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
