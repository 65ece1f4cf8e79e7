// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// The searchable resources and the columns their queries cover. MySQL with
// FULLTEXT support runs MATCH ... AGAINST over the migration-built indexes;
// everything else falls back to case-insensitive LIKE over the same
// columns.
var searchColumns = map[string][]string{
	"stories":  {"title", "description"},
	"tasks":    {"title"},
	"projects": {"name", "description"},
	"users":    {"full_name", "email"},
	"comments": {"content"},
}

func (s *Session) searchWhere(table, term string) (string, []any, error) {
	columns, ok := searchColumns[table]
	if !ok {
		return "", nil, NewClientError("resource %q is not searchable", table)
	}
	if err := validUnicode(term); err != nil {
		return "", nil, err
	}

	if s.store.fulltext {
		return fmt.Sprintf("MATCH (%s) AGAINST (? IN BOOLEAN MODE)",
			strings.Join(columns, ", ")), []any{term}, nil
	}

	like := "%" + strings.ToLower(term) + "%"
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ?", column)
		args[i] = like
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, nil
}

// SearchStories finds active stories whose title or description match term.
func (s *Session) SearchStories(ctx context.Context, term string, q Query) ([]models.Story, error) {
	where, args, err := s.searchWhere("stories", term)
	if err != nil {
		return nil, err
	}
	args = append(args, true)
	var stories []models.Story
	err = s.selectList(ctx, &stories, "stories", storyColumns, storySortable, q,
		where+" AND is_active = ?", args...)
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// SearchTasks finds active tasks whose title matches term.
func (s *Session) SearchTasks(ctx context.Context, term string, q Query) ([]models.Task, error) {
	where, args, err := s.searchWhere("tasks", term)
	if err != nil {
		return nil, err
	}
	args = append(args, true)
	var tasks []models.Task
	err = s.selectList(ctx, &tasks, "tasks", taskColumns, taskSortable, q,
		where+" AND is_active = ?", args...)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// SearchProjects finds projects whose name or description match term.
func (s *Session) SearchProjects(ctx context.Context, term string, q Query) ([]models.Project, error) {
	where, args, err := s.searchWhere("projects", term)
	if err != nil {
		return nil, err
	}
	var projects []models.Project
	err = s.selectList(ctx, &projects, "projects", projectColumns, projectSortable, q,
		where, args...)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// SearchUsers finds users by name or email.
func (s *Session) SearchUsers(ctx context.Context, term string, q Query) ([]models.User, error) {
	where, args, err := s.searchWhere("users", term)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = s.selectList(ctx, &users, "users", userColumns, userSortable, q,
		where, args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}
