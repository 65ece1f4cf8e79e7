// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

const commentColumns = "id, created_at, updated_at, content, is_active, in_reply_to"

// CreateComment inserts a comment and the user_comment timeline event that
// anchors it to the story. The returned event carries the comment id.
func (s *Session) CreateComment(ctx context.Context, storyID, authorID int64, comment *models.Comment) (*models.TimelineEvent, error) {
	if err := validUnicode(comment.Content); err != nil {
		return nil, err
	}
	story, err := s.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if comment.InReplyTo != nil {
		if _, err := s.GetComment(ctx, *comment.InReplyTo); err != nil {
			return nil, err
		}
	}
	comment.IsActive = true
	touch(&comment.Base)
	id, err := s.insert(ctx, `
		INSERT INTO comments (created_at, updated_at, content, is_active, in_reply_to)
		VALUES (:created_at, :updated_at, :content, :is_active, :in_reply_to)`, comment)
	if err != nil {
		return nil, err
	}
	comment.ID = id

	info, err := json.Marshal(map[string]any{
		"comment_id":  comment.ID,
		"story_id":    story.ID,
		"story_title": story.Title,
	})
	if err != nil {
		return nil, err
	}
	event := &models.TimelineEvent{
		StoryID:   &story.ID,
		CommentID: &comment.ID,
		AuthorID:  authorID,
		EventType: models.EventUserComment,
		EventInfo: string(info),
	}
	if err := s.CreateTimelineEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// GetComment fetches an active comment by id.
func (s *Session) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	err := s.getOne(ctx, &comment,
		"SELECT "+commentColumns+" FROM comments WHERE id = ? AND is_active = ?",
		id, true)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// StoryComments returns a story's active comments in canonical order:
// oldest first, id breaking ties.
func (s *Session) StoryComments(ctx context.Context, storyID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.tx.SelectContext(ctx, &comments, `
		SELECT c.id, c.created_at, c.updated_at, c.content, c.is_active, c.in_reply_to
		FROM comments c
		JOIN timeline_events te ON te.comment_id = c.id
		WHERE te.story_id = ? AND te.event_type = ? AND c.is_active = ?
		ORDER BY c.created_at ASC, c.id ASC`,
		storyID, models.EventUserComment, true)
	if err != nil {
		return nil, classifyError(err)
	}
	return comments, nil
}

// UpdateComment rewrites a comment's content, preserving the previous
// content in comments_history.
func (s *Session) UpdateComment(ctx context.Context, id int64, content string) (*models.Comment, error) {
	if err := validUnicode(content); err != nil {
		return nil, err
	}
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	history := &models.CommentHistory{CommentID: comment.ID, Content: comment.Content}
	touch(&history.Base)
	if _, err := s.insert(ctx, `
		INSERT INTO comments_history (created_at, updated_at, comment_id, content)
		VALUES (:created_at, :updated_at, :comment_id, :content)`, history); err != nil {
		return nil, err
	}

	comment.Content = content
	comment.UpdatedAt = models.Now()
	err = s.execAffecting(ctx,
		"UPDATE comments SET updated_at = ?, content = ? WHERE id = ? AND is_active = ?",
		comment.UpdatedAt, comment.Content, comment.ID, true)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// CommentHistory returns a comment's prior contents, oldest first.
func (s *Session) CommentHistory(ctx context.Context, commentID int64) ([]models.CommentHistory, error) {
	var history []models.CommentHistory
	err := s.tx.SelectContext(ctx, &history, `
		SELECT id, created_at, updated_at, comment_id, content
		FROM comments_history WHERE comment_id = ?
		ORDER BY created_at ASC, id ASC`, commentID)
	if err != nil {
		return nil, classifyError(err)
	}
	return history, nil
}

// DeleteComment soft-deletes a comment; the timeline event remains.
func (s *Session) DeleteComment(ctx context.Context, id int64) error {
	return s.execAffecting(ctx,
		"UPDATE comments SET updated_at = ?, is_active = ? WHERE id = ? AND is_active = ?",
		models.Now(), false, id, true)
}

// CreateTimelineEvent appends one timeline record. The event type must
// belong to the closed enum.
func (s *Session) CreateTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	if !models.ValidTimelineEventType(event.EventType) {
		return NewClientError("invalid timeline event type %q", event.EventType)
	}
	touch(&event.Base)
	id, err := s.insert(ctx, `
		INSERT INTO timeline_events (created_at, updated_at, story_id,
			worklist_id, board_id, comment_id, author_id, event_type, event_info)
		VALUES (:created_at, :updated_at, :story_id,
			:worklist_id, :board_id, :comment_id, :author_id, :event_type, :event_info)`,
		event)
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// GetTimelineEvent fetches one timeline record.
func (s *Session) GetTimelineEvent(ctx context.Context, id int64) (*models.TimelineEvent, error) {
	var event models.TimelineEvent
	err := s.getOne(ctx, &event, `
		SELECT id, created_at, updated_at, story_id, worklist_id, board_id,
			comment_id, author_id, event_type, event_info
		FROM timeline_events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// StoryTimeline returns a story's events matching q.
func (s *Session) StoryTimeline(ctx context.Context, storyID int64, q Query) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	sortable := map[string]bool{"event_type": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &events, "timeline_events",
		"id, created_at, updated_at, story_id, worklist_id, board_id, comment_id, author_id, event_type, event_info",
		sortable, q, "story_id = ?", storyID)
	if err != nil {
		return nil, err
	}
	return events, nil
}
