// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

const worklistColumns = "id, created_at, updated_at, title, creator_id, project_id, private, archived, automatic"

// CreateWorklist inserts a worklist.
func (s *Session) CreateWorklist(ctx context.Context, list *models.Worklist) error {
	if err := validUnicode(list.Title); err != nil {
		return err
	}
	touch(&list.Base)
	id, err := s.insert(ctx, `
		INSERT INTO worklists (created_at, updated_at, title, creator_id,
			project_id, private, archived, automatic)
		VALUES (:created_at, :updated_at, :title, :creator_id,
			:project_id, :private, :archived, :automatic)`, list)
	if err != nil {
		return err
	}
	list.ID = id
	return nil
}

// GetWorklist fetches a worklist by id.
func (s *Session) GetWorklist(ctx context.Context, id int64) (*models.Worklist, error) {
	var list models.Worklist
	err := s.getOne(ctx, &list,
		"SELECT "+worklistColumns+" FROM worklists WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// ListWorklists returns unarchived worklists matching q.
func (s *Session) ListWorklists(ctx context.Context, q Query) ([]models.Worklist, error) {
	var lists []models.Worklist
	sortable := map[string]bool{"title": true, "creator_id": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &lists, "worklists", worklistColumns, sortable, q,
		"archived = ?", false)
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// UpdateWorklist rewrites a worklist's mutable columns.
func (s *Session) UpdateWorklist(ctx context.Context, list *models.Worklist) error {
	if err := validUnicode(list.Title); err != nil {
		return err
	}
	list.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE worklists SET updated_at = ?, title = ?, private = ?,
			archived = ?, automatic = ? WHERE id = ?`,
		list.UpdatedAt, list.Title, list.Private, list.Archived,
		list.Automatic, list.ID)
}

// ArchiveWorklist marks a worklist archived and drops its subscriptions.
func (s *Session) ArchiveWorklist(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx,
		"UPDATE worklists SET updated_at = ?, archived = ? WHERE id = ?",
		models.Now(), true, id); err != nil {
		return err
	}
	return s.DeleteTargetSubscriptions(ctx, models.TargetWorklist, id)
}

const worklistItemColumns = "id, created_at, updated_at, list_id, item_type, item_id, list_position, archived, display_due_date, resolved_at"

// AddWorklistItem inserts an item at position, shifting later items down.
func (s *Session) AddWorklistItem(ctx context.Context, item *models.WorklistItem) error {
	if item.ItemType != models.ItemStory && item.ItemType != models.ItemTask {
		return NewClientError("invalid worklist item type %q", item.ItemType)
	}
	switch item.ItemType {
	case models.ItemStory:
		if _, err := s.GetStory(ctx, item.ItemID); err != nil {
			return err
		}
	case models.ItemTask:
		if _, err := s.GetTask(ctx, item.ItemID); err != nil {
			return err
		}
	}
	if err := s.exec(ctx, `
		UPDATE worklist_items SET list_position = list_position + 1
		WHERE list_id = ? AND list_position >= ?`,
		item.ListID, item.ListPosition); err != nil {
		return err
	}
	touch(&item.Base)
	id, err := s.insert(ctx, `
		INSERT INTO worklist_items (created_at, updated_at, list_id, item_type,
			item_id, list_position, archived, display_due_date, resolved_at)
		VALUES (:created_at, :updated_at, :list_id, :item_type,
			:item_id, :list_position, :archived, :display_due_date, :resolved_at)`,
		item)
	if err != nil {
		return err
	}
	item.ID = id
	return nil
}

// WorklistItems returns a worklist's unarchived items in order.
func (s *Session) WorklistItems(ctx context.Context, listID int64) ([]models.WorklistItem, error) {
	var items []models.WorklistItem
	err := s.tx.SelectContext(ctx, &items,
		"SELECT "+worklistItemColumns+
			" FROM worklist_items WHERE list_id = ? AND archived = ? ORDER BY list_position, id",
		listID, false)
	if err != nil {
		return nil, classifyError(err)
	}
	return items, nil
}

// MoveWorklistItem repositions an item within its list.
func (s *Session) MoveWorklistItem(ctx context.Context, itemID int64, position int) error {
	var item models.WorklistItem
	err := s.getOne(ctx, &item,
		"SELECT "+worklistItemColumns+" FROM worklist_items WHERE id = ?", itemID)
	if err != nil {
		return err
	}
	if position == item.ListPosition {
		return nil
	}
	if position > item.ListPosition {
		if err := s.exec(ctx, `
			UPDATE worklist_items SET list_position = list_position - 1
			WHERE list_id = ? AND list_position > ? AND list_position <= ?`,
			item.ListID, item.ListPosition, position); err != nil {
			return err
		}
	} else {
		if err := s.exec(ctx, `
			UPDATE worklist_items SET list_position = list_position + 1
			WHERE list_id = ? AND list_position >= ? AND list_position < ?`,
			item.ListID, position, item.ListPosition); err != nil {
			return err
		}
	}
	return s.execAffecting(ctx,
		"UPDATE worklist_items SET updated_at = ?, list_position = ? WHERE id = ?",
		models.Now(), position, itemID)
}

// RemoveWorklistItem hard-deletes an item and closes the position gap.
func (s *Session) RemoveWorklistItem(ctx context.Context, itemID int64) error {
	var item models.WorklistItem
	err := s.getOne(ctx, &item,
		"SELECT "+worklistItemColumns+" FROM worklist_items WHERE id = ?", itemID)
	if err != nil {
		return err
	}
	if err := s.execAffecting(ctx,
		"DELETE FROM worklist_items WHERE id = ?", itemID); err != nil {
		return err
	}
	return s.exec(ctx, `
		UPDATE worklist_items SET list_position = list_position - 1
		WHERE list_id = ? AND list_position > ?`,
		item.ListID, item.ListPosition)
}

// SetWorklistFilters replaces the filters of an automatic worklist.
func (s *Session) SetWorklistFilters(ctx context.Context, listID int64, filters []models.WorklistFilter, criteria map[int][]models.FilterCriterion) error {
	list, err := s.GetWorklist(ctx, listID)
	if err != nil {
		return err
	}
	if !list.Automatic {
		return NewClientError("worklist %d is not automatic", listID)
	}

	if err := s.exec(ctx, `
		DELETE FROM filter_criteria WHERE filter_id IN
		(SELECT id FROM worklist_filters WHERE list_id = ?)`, listID); err != nil {
		return err
	}
	if err := s.exec(ctx,
		"DELETE FROM worklist_filters WHERE list_id = ?", listID); err != nil {
		return err
	}

	for i := range filters {
		filters[i].ListID = listID
		touch(&filters[i].Base)
		id, err := s.insert(ctx, `
			INSERT INTO worklist_filters (created_at, updated_at, list_id, filter_type)
			VALUES (:created_at, :updated_at, :list_id, :filter_type)`, &filters[i])
		if err != nil {
			return err
		}
		filters[i].ID = id
		for _, criterion := range criteria[i] {
			criterion.FilterID = id
			touch(&criterion.Base)
			if _, err := s.insert(ctx, `
				INSERT INTO filter_criteria (created_at, updated_at, filter_id,
					title, field, value, negative)
				VALUES (:created_at, :updated_at, :filter_id,
					:title, :field, :value, :negative)`, &criterion); err != nil {
				return err
			}
		}
	}
	return nil
}

// WorklistFilters returns a worklist's filters with their criteria.
func (s *Session) WorklistFilters(ctx context.Context, listID int64) ([]models.WorklistFilter, map[int64][]models.FilterCriterion, error) {
	var filters []models.WorklistFilter
	err := s.tx.SelectContext(ctx, &filters, `
		SELECT id, created_at, updated_at, list_id, filter_type
		FROM worklist_filters WHERE list_id = ? ORDER BY id`, listID)
	if err != nil {
		return nil, nil, classifyError(err)
	}
	criteria := make(map[int64][]models.FilterCriterion, len(filters))
	for i := range filters {
		var rows []models.FilterCriterion
		err := s.tx.SelectContext(ctx, &rows, `
			SELECT id, created_at, updated_at, filter_id, title, field, value, negative
			FROM filter_criteria WHERE filter_id = ? ORDER BY id`, filters[i].ID)
		if err != nil {
			return nil, nil, classifyError(err)
		}
		criteria[filters[i].ID] = rows
	}
	return filters, criteria, nil
}

// TaskMatchesFilter reports whether a task satisfies every criterion of the
// filter. A worklist admits a task when any one of its task filters does.
func TaskMatchesFilter(task *models.Task, criteria []models.FilterCriterion) bool {
	for _, criterion := range criteria {
		var match bool
		switch criterion.Field {
		case "status":
			match = task.Status == criterion.Value
		case "priority":
			match = task.Priority == criterion.Value
		case "project_id":
			match = strconv.FormatInt(task.ProjectID, 10) == criterion.Value
		case "story_id":
			match = strconv.FormatInt(task.StoryID, 10) == criterion.Value
		case "assignee_id":
			match = task.AssigneeID != nil &&
				strconv.FormatInt(*task.AssigneeID, 10) == criterion.Value
		default:
			return false
		}
		if criterion.Negative {
			match = !match
		}
		if !match {
			return false
		}
	}
	return len(criteria) > 0
}

const boardColumns = "id, created_at, updated_at, title, creator_id, project_id, private, archived"

// CreateBoard inserts a board.
func (s *Session) CreateBoard(ctx context.Context, board *models.Board) error {
	if err := validUnicode(board.Title); err != nil {
		return err
	}
	touch(&board.Base)
	id, err := s.insert(ctx, `
		INSERT INTO boards (created_at, updated_at, title, creator_id,
			project_id, private, archived)
		VALUES (:created_at, :updated_at, :title, :creator_id,
			:project_id, :private, :archived)`, board)
	if err != nil {
		return err
	}
	board.ID = id
	return nil
}

// GetBoard fetches a board by id.
func (s *Session) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	var board models.Board
	err := s.getOne(ctx, &board,
		"SELECT "+boardColumns+" FROM boards WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// ListBoards returns unarchived boards matching q.
func (s *Session) ListBoards(ctx context.Context, q Query) ([]models.Board, error) {
	var boards []models.Board
	sortable := map[string]bool{"title": true, "creator_id": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &boards, "boards", boardColumns, sortable, q,
		"archived = ?", false)
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// UpdateBoard rewrites a board's mutable columns.
func (s *Session) UpdateBoard(ctx context.Context, board *models.Board) error {
	if err := validUnicode(board.Title); err != nil {
		return err
	}
	board.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE boards SET updated_at = ?, title = ?, private = ?, archived = ?
		WHERE id = ?`,
		board.UpdatedAt, board.Title, board.Private, board.Archived, board.ID)
}

// SetBoardLanes replaces a board's worklist lanes in order.
func (s *Session) SetBoardLanes(ctx context.Context, boardID int64, listIDs []int64) error {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return err
	}
	if err := s.exec(ctx,
		"DELETE FROM board_worklists WHERE board_id = ?", boardID); err != nil {
		return err
	}
	for position, listID := range listIDs {
		if _, err := s.GetWorklist(ctx, listID); err != nil {
			return err
		}
		lane := &models.BoardWorklist{BoardID: boardID, ListID: listID, Position: position}
		touch(&lane.Base)
		if _, err := s.insert(ctx, `
			INSERT INTO board_worklists (created_at, updated_at, board_id, list_id, position)
			VALUES (:created_at, :updated_at, :board_id, :list_id, :position)`,
			lane); err != nil {
			return err
		}
	}
	return nil
}

// BoardLanes returns a board's lanes in order.
func (s *Session) BoardLanes(ctx context.Context, boardID int64) ([]models.BoardWorklist, error) {
	var lanes []models.BoardWorklist
	err := s.tx.SelectContext(ctx, &lanes, `
		SELECT id, created_at, updated_at, board_id, list_id, position
		FROM board_worklists WHERE board_id = ? ORDER BY position`, boardID)
	if err != nil {
		return nil, classifyError(err)
	}
	return lanes, nil
}

// CreateDueDate inserts a named date.
func (s *Session) CreateDueDate(ctx context.Context, due *models.DueDate) error {
	if due.Date != nil {
		if err := ensureAware(due.Date.Time); err != nil {
			return err
		}
	}
	touch(&due.Base)
	id, err := s.insert(ctx, `
		INSERT INTO due_dates (created_at, updated_at, name, date, creator_id, private)
		VALUES (:created_at, :updated_at, :name, :date, :creator_id, :private)`, due)
	if err != nil {
		return err
	}
	due.ID = id
	return nil
}

// GetDueDate fetches a due date by id.
func (s *Session) GetDueDate(ctx context.Context, id int64) (*models.DueDate, error) {
	var due models.DueDate
	err := s.getOne(ctx, &due, `
		SELECT id, created_at, updated_at, name, date, creator_id, private
		FROM due_dates WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &due, nil
}

// AttachDueDate associates a due date with a story, task, board or
// worklist.
func (s *Session) AttachDueDate(ctx context.Context, dueDateID int64, targetType string, targetID int64) error {
	table, column, err := dueDateAssociation(targetType)
	if err != nil {
		return err
	}
	if _, err := s.GetDueDate(ctx, dueDateID); err != nil {
		return err
	}
	return s.exec(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, due_date_id) VALUES (?, ?)", table, column),
		targetID, dueDateID)
}

// DetachDueDate removes a due date association.
func (s *Session) DetachDueDate(ctx context.Context, dueDateID int64, targetType string, targetID int64) error {
	table, column, err := dueDateAssociation(targetType)
	if err != nil {
		return err
	}
	return s.execAffecting(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND due_date_id = ?", table, column),
		targetID, dueDateID)
}

func dueDateAssociation(targetType string) (table, column string, err error) {
	switch targetType {
	case models.TargetStory:
		return "story_due_dates", "story_id", nil
	case models.TargetTask:
		return "task_due_dates", "task_id", nil
	case models.TargetWorklist:
		return "worklist_due_dates", "worklist_id", nil
	case "board":
		return "board_due_dates", "board_id", nil
	default:
		return "", "", NewClientError("due dates cannot attach to %q", targetType)
	}
}
