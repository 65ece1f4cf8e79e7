// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

func TestCreateCommentAppendsTimeline(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	comment := &models.Comment{Content: "reproduced locally"}
	event, err := session.CreateComment(ctx, story.ID, user.ID, comment)
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.ID == 0 || !comment.IsActive {
		t.Fatalf("comment = %+v", comment)
	}
	if event.EventType != models.EventUserComment {
		t.Fatalf("event_type = %q, want %q", event.EventType, models.EventUserComment)
	}
	if event.CommentID == nil || *event.CommentID != comment.ID {
		t.Fatalf("event comment_id = %v, want %d", event.CommentID, comment.ID)
	}

	timeline, err := session.StoryTimeline(ctx, story.ID, Query{})
	if err != nil {
		t.Fatalf("story timeline: %v", err)
	}
	found := false
	for _, entry := range timeline {
		if entry.EventType == models.EventUserComment {
			found = true
		}
	}
	if !found {
		t.Fatalf("timeline %+v lacks the comment event", timeline)
	}
}

func TestStoryCommentsOrderedOldestFirst(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	for _, content := range []string{"first", "second", "third"} {
		comment := &models.Comment{Content: content}
		if _, err := session.CreateComment(ctx, story.ID, user.ID, comment); err != nil {
			t.Fatalf("create comment %q: %v", content, err)
		}
	}

	comments, err := session.StoryComments(ctx, story.ID)
	if err != nil {
		t.Fatalf("story comments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("comment count = %d, want 3", len(comments))
	}
	for i, want := range []string{"first", "second", "third"} {
		if comments[i].Content != want {
			t.Fatalf("position %d = %q, want %q", i, comments[i].Content, want)
		}
	}
}

func TestUpdateCommentKeepsHistory(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	comment := &models.Comment{Content: "orignal"}
	if _, err := session.CreateComment(ctx, story.ID, user.ID, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	updated, err := session.UpdateComment(ctx, comment.ID, "original")
	if err != nil {
		t.Fatalf("update comment: %v", err)
	}
	if updated.Content != "original" {
		t.Fatalf("content = %q, want corrected text", updated.Content)
	}

	history, err := session.CommentHistory(ctx, comment.ID)
	if err != nil {
		t.Fatalf("comment history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "orignal" {
		t.Fatalf("history = %+v, want the prior content", history)
	}
}

func TestDeleteCommentSoft(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	comment := &models.Comment{Content: "noise"}
	event, err := session.CreateComment(ctx, story.ID, user.ID, comment)
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := session.DeleteComment(ctx, comment.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}

	if _, err := session.GetComment(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted comment lookup = %v, want ErrNotFound", err)
	}
	// The timeline record outlives the comment.
	if _, err := session.GetTimelineEvent(ctx, event.ID); err != nil {
		t.Fatalf("timeline event lookup: %v", err)
	}
}

func TestCreateCommentRejectsBadUnicode(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	comment := &models.Comment{Content: "broken \xff\xfe encoding"}
	_, err := session.CreateComment(ctx, story.ID, user.ID, comment)
	if !errors.Is(err, ErrInvalidUnicode) {
		t.Fatalf("create comment = %v, want ErrInvalidUnicode", err)
	}
}

func TestCreateTimelineEventRejectsUnknownType(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user, _, story := taskFixture(t, session)

	event := &models.TimelineEvent{
		StoryID:   &story.ID,
		AuthorID:  user.ID,
		EventType: "story_exploded",
	}
	err := session.CreateTimelineEvent(ctx, event)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("create event = %v, want ClientError", err)
	}
}
