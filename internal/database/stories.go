// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

var storySortable = map[string]bool{
	"title": true, "created_at": true, "updated_at": true,
	"story_type_id": true, "creator_id": true,
}

const storyColumns = "id, created_at, updated_at, creator_id, title, description, story_type_id, private, is_active"

// CreateStory inserts a story. The story type must exist and be directly
// creatable (restricted types only arrive through mutation).
func (s *Session) CreateStory(ctx context.Context, story *models.Story) error {
	if err := validUnicode(story.Title, story.Description); err != nil {
		return err
	}
	if story.StoryTypeID == 0 {
		story.StoryTypeID = models.StoryTypeBug
	}
	storyType, err := s.GetStoryType(ctx, story.StoryTypeID)
	if err != nil {
		return err
	}
	if storyType.Restricted {
		return NewClientError("story type %q cannot be assigned at creation", storyType.Name)
	}
	story.Private = story.Private || storyType.Private
	story.IsActive = true
	touch(&story.Base)
	id, err := s.insert(ctx, `
		INSERT INTO stories (created_at, updated_at, creator_id, title,
			description, story_type_id, private, is_active)
		VALUES (:created_at, :updated_at, :creator_id, :title,
			:description, :story_type_id, :private, :is_active)`, story)
	if err != nil {
		return err
	}
	story.ID = id
	return nil
}

// GetStory fetches an active story by id.
func (s *Session) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	var story models.Story
	err := s.getOne(ctx, &story,
		fmt.Sprintf("SELECT %s FROM stories WHERE id = ? AND is_active = ?", storyColumns),
		id, true)
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// ListStories returns active stories matching q.
func (s *Session) ListStories(ctx context.Context, q Query) ([]models.Story, error) {
	var stories []models.Story
	err := s.selectList(ctx, &stories, "stories", storyColumns, storySortable, q,
		"is_active = ?", true)
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// UpdateStory rewrites a story's mutable columns. A story type change must
// be allowed by the mutation matrix.
func (s *Session) UpdateStory(ctx context.Context, story *models.Story) error {
	if err := validUnicode(story.Title, story.Description); err != nil {
		return err
	}
	current, err := s.GetStory(ctx, story.ID)
	if err != nil {
		return err
	}
	if story.StoryTypeID != current.StoryTypeID {
		ok, err := s.MayMutate(ctx, current.StoryTypeID, story.StoryTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return NewClientError("story type %d cannot mutate to %d",
				current.StoryTypeID, story.StoryTypeID)
		}
	}
	story.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE stories SET updated_at = ?, title = ?, description = ?,
			story_type_id = ?, private = ? WHERE id = ? AND is_active = ?`,
		story.UpdatedAt, story.Title, story.Description, story.StoryTypeID,
		story.Private, story.ID, true)
}

// DeleteStory soft-deletes a story and hard-deletes its subscriptions.
func (s *Session) DeleteStory(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx,
		"UPDATE stories SET updated_at = ?, is_active = ? WHERE id = ? AND is_active = ?",
		models.Now(), false, id, true); err != nil {
		return err
	}
	return s.DeleteTargetSubscriptions(ctx, models.TargetStory, id)
}

// GetStoryType fetches a story type by id.
func (s *Session) GetStoryType(ctx context.Context, id int64) (*models.StoryType, error) {
	var storyType models.StoryType
	err := s.getOne(ctx, &storyType, `
		SELECT id, created_at, updated_at, name, icon, restricted, private, visible
		FROM story_types WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &storyType, nil
}

// ListStoryTypes returns every story type.
func (s *Session) ListStoryTypes(ctx context.Context) ([]models.StoryType, error) {
	var types []models.StoryType
	err := s.tx.SelectContext(ctx, &types, `
		SELECT id, created_at, updated_at, name, icon, restricted, private, visible
		FROM story_types ORDER BY id`)
	if err != nil {
		return nil, classifyError(err)
	}
	return types, nil
}

// MayMutate reports whether the (from, to) story type transition is allowed.
func (s *Session) MayMutate(ctx context.Context, fromID, toID int64) (bool, error) {
	var count int
	err := s.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM may_mutate_to
		WHERE story_type_id_from = ? AND story_type_id_to = ?`, fromID, toID)
	if err != nil {
		return false, classifyError(err)
	}
	return count > 0, nil
}

// GetOrCreateTag resolves a tag name to its row, creating it on first use.
func (s *Session) GetOrCreateTag(ctx context.Context, name string) (*models.StoryTag, error) {
	if name == "" || len(name) > models.StoryTagMaxLength {
		return nil, NewClientError("tag name must be 1 to %d characters", models.StoryTagMaxLength)
	}
	if err := validUnicode(name); err != nil {
		return nil, err
	}
	var tag models.StoryTag
	err := s.getOne(ctx, &tag,
		"SELECT id, created_at, updated_at, name FROM story_tags WHERE name = ?", name)
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	tag.Name = name
	touch(&tag.Base)
	id, err := s.insert(ctx, `
		INSERT INTO story_tags (created_at, updated_at, name)
		VALUES (:created_at, :updated_at, :name)`, &tag)
	if err != nil {
		return nil, err
	}
	tag.ID = id
	return &tag, nil
}

// AddStoryTags attaches tags to a story and returns the names actually
// added; tags already present do not repeat.
func (s *Session) AddStoryTags(ctx context.Context, storyID int64, names []string) ([]string, error) {
	if _, err := s.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	var added []string
	for _, name := range names {
		tag, err := s.GetOrCreateTag(ctx, name)
		if err != nil {
			return nil, err
		}
		err = s.exec(ctx,
			"INSERT INTO story_storytags (story_id, tag_id) VALUES (?, ?)",
			storyID, tag.ID)
		if errors.Is(err, ErrDuplicateEntry) {
			continue
		}
		if err != nil {
			return nil, err
		}
		added = append(added, name)
	}
	return added, nil
}

// RemoveStoryTags detaches tags from a story and returns the names actually
// removed.
func (s *Session) RemoveStoryTags(ctx context.Context, storyID int64, names []string) ([]string, error) {
	var removed []string
	for _, name := range names {
		var tagID int64
		err := s.tx.GetContext(ctx, &tagID,
			"SELECT id FROM story_tags WHERE name = ?", name)
		if err != nil {
			if errors.Is(classifyError(err), ErrNotFound) {
				continue
			}
			return nil, classifyError(err)
		}
		res, err := s.tx.ExecContext(ctx,
			"DELETE FROM story_storytags WHERE story_id = ? AND tag_id = ?",
			storyID, tagID)
		if err != nil {
			return nil, classifyError(err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed = append(removed, name)
		}
	}
	return removed, nil
}

// StoryTags returns the tag names attached to a story.
func (s *Session) StoryTags(ctx context.Context, storyID int64) ([]string, error) {
	var names []string
	err := s.tx.SelectContext(ctx, &names, `
		SELECT t.name FROM story_tags t
		JOIN story_storytags st ON st.tag_id = t.id
		WHERE st.story_id = ? ORDER BY t.name`, storyID)
	if err != nil {
		return nil, classifyError(err)
	}
	return names, nil
}

// SetStoryPermission replaces the ACL row guarding a private story.
func (s *Session) SetStoryPermission(ctx context.Context, storyID, permissionID int64) error {
	if err := s.exec(ctx,
		"DELETE FROM story_permissions WHERE story_id = ?", storyID); err != nil {
		return err
	}
	return s.exec(ctx,
		"INSERT INTO story_permissions (story_id, permission_id) VALUES (?, ?)",
		storyID, permissionID)
}

// StoryVisibleTo reports whether a user may see a story. Public stories are
// visible to everyone; private ones require creator, superuser or an ACL
// grant.
func (s *Session) StoryVisibleTo(ctx context.Context, story *models.Story, userID int64) (bool, error) {
	if !story.Private {
		return true, nil
	}
	if story.CreatorID == userID {
		return true, nil
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.IsSuperuser {
		return true, nil
	}
	var count int
	err = s.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM story_permissions sp
		LEFT JOIN user_permissions up ON up.permission_id = sp.permission_id
		LEFT JOIN team_permissions tp ON tp.permission_id = sp.permission_id
		LEFT JOIN team_memberships tm ON tm.team_id = tp.team_id
		WHERE sp.story_id = ? AND (up.user_id = ? OR tm.user_id = ?)`,
		story.ID, userID, userID)
	if err != nil {
		return false, classifyError(err)
	}
	return count > 0, nil
}
