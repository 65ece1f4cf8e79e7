// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package notifications carries API mutations onto the event bus. Every
// successful POST, PUT or DELETE produces one Envelope describing the
// request, the touched resource and its before/after snapshots; worker
// processes consume the stream and fan it out to subscribers.
package notifications

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Envelope is the wire shape of one mutation event.
type Envelope struct {
	AuthorID      int64  `json:"author_id"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	Resource      string `json:"resource"`
	ResourceID    *int64 `json:"resource_id,omitempty"`
	SubResource   string `json:"sub_resource,omitempty"`
	SubResourceID *int64 `json:"sub_resource_id,omitempty"`

	// Snapshots of the resource row as JSON, taken before and after the
	// mutation. Creates have no before; deletes have no after.
	ResourceBefore json.RawMessage `json:"resource_before,omitempty"`
	ResourceAfter  json.RawMessage `json:"resource_after,omitempty"`
}

// Marshal renders the envelope as a Watermill message.
func (e *Envelope) Marshal() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("resource", e.Resource)
	msg.Metadata.Set("method", e.Method)
	return msg, nil
}

// Unmarshal parses a Watermill message back into an envelope.
func Unmarshal(msg *message.Message) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}
