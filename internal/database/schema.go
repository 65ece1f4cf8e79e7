// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations returns the full version chain. The chain condenses the
// service's schema history into monotone, reversible versions; the two
// legacy revisions that shared number 009 are merged into version 2 (auth
// tables plus the drop of the legacy story priority column).
func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "initial_schema",
			Up:      seq(initialSchemaUp, seedStoryTypes),
			Down: stmts(
				"DROP TABLE IF EXISTS timeline_events",
				"DROP TABLE IF EXISTS comments",
				"DROP TABLE IF EXISTS story_storytags",
				"DROP TABLE IF EXISTS story_tags",
				"DROP TABLE IF EXISTS tasks",
				"DROP TABLE IF EXISTS stories",
				"DROP TABLE IF EXISTS may_mutate_to",
				"DROP TABLE IF EXISTS story_types",
				"DROP TABLE IF EXISTS project_group_mapping",
				"DROP TABLE IF EXISTS project_groups",
				"DROP TABLE IF EXISTS projects",
				"DROP TABLE IF EXISTS team_permissions",
				"DROP TABLE IF EXISTS user_permissions",
				"DROP TABLE IF EXISTS permissions",
				"DROP TABLE IF EXISTS team_memberships",
				"DROP TABLE IF EXISTS teams",
				"DROP TABLE IF EXISTS users",
			),
		},
		{
			Version: 2,
			Name:    "oauth_models",
			Up: seq(dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE authorization_codes (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	code VARCHAR(100) NOT NULL,
	state VARCHAR(100) NOT NULL,
	user_id BIGINT NOT NULL,
	expires_in BIGINT NOT NULL DEFAULT 300,
	is_active BOOLEAN NOT NULL DEFAULT 1
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE access_tokens (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	access_token VARCHAR(100) NOT NULL,
	user_id BIGINT NOT NULL,
	expires_in BIGINT NOT NULL,
	expires_at %s NOT NULL,
	UNIQUE (access_token)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE refresh_tokens (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	refresh_token VARCHAR(100) NOT NULL,
	access_token_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	expires_in BIGINT NOT NULL,
	expires_at %s NOT NULL,
	FOREIGN KEY (access_token_id) REFERENCES access_tokens (id) ON DELETE CASCADE
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					"CREATE INDEX access_tokens_token_idx ON access_tokens (access_token)",
				}
			}), dropColumn("stories", "priority")),
			// Down re-adds the legacy column empty: the priority values
			// dropped on upgrade are irrecoverable (documented).
			Down: stmts(
				"ALTER TABLE stories ADD COLUMN priority VARCHAR(50)",
				"DROP TABLE IF EXISTS refresh_tokens",
				"DROP TABLE IF EXISTS access_tokens",
				"DROP TABLE IF EXISTS authorization_codes",
			),
		},
		{
			Version: 3,
			Name:    "subscriptions",
			Up: dstmts(func(d Dialect) []string {
				return []string{fmt.Sprintf(`CREATE TABLE subscriptions (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	user_id BIGINT NOT NULL,
	target_type VARCHAR(100) NOT NULL,
	target_id BIGINT NOT NULL,
	UNIQUE (user_id, target_type, target_id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime())}
			}),
			Down: stmts("DROP TABLE IF EXISTS subscriptions"),
		},
		{
			Version: 4,
			Name:    "subscription_events",
			Up: dstmts(func(d Dialect) []string {
				return []string{fmt.Sprintf(`CREATE TABLE subscription_events (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	subscriber_id BIGINT NOT NULL,
	author_id BIGINT NOT NULL,
	event_type VARCHAR(100) NOT NULL,
	event_info %s
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.MediumText())}
			}),
			Down: stmts("DROP TABLE IF EXISTS subscription_events"),
		},
		{
			Version: 5,
			Name:    "branches",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE branches (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	project_id BIGINT NOT NULL,
	expired BOOLEAN NOT NULL DEFAULT 0,
	expiration_date %s,
	autocreated BOOLEAN NOT NULL DEFAULT 0,
	restricted BOOLEAN NOT NULL DEFAULT 0,
	UNIQUE (name, project_id),
	FOREIGN KEY (project_id) REFERENCES projects (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					"ALTER TABLE tasks ADD COLUMN branch_id BIGINT",
				}
			}),
			Down: seq(
				dropColumn("tasks", "branch_id"),
				stmts("DROP TABLE IF EXISTS branches"),
			),
		},
		{
			Version: 6,
			Name:    "milestones",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE milestones (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	branch_id BIGINT NOT NULL,
	expired BOOLEAN NOT NULL DEFAULT 0,
	expiration_date %s,
	UNIQUE (name, branch_id),
	FOREIGN KEY (branch_id) REFERENCES branches (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					"ALTER TABLE tasks ADD COLUMN milestone_id BIGINT",
				}
			}),
			Down: seq(
				dropColumn("tasks", "milestone_id"),
				stmts("DROP TABLE IF EXISTS milestones"),
			),
		},
		{
			Version: 7,
			Name:    "user_preferences",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE user_preferences (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	user_id BIGINT NOT NULL,
	` + "`key`" + ` VARCHAR(100) NOT NULL,
	value VARCHAR(255) NOT NULL,
	type VARCHAR(50) NOT NULL,
	UNIQUE (user_id, ` + "`key`" + `),
	FOREIGN KEY (user_id) REFERENCES users (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					"ALTER TABLE users ADD COLUMN enable_login BOOLEAN NOT NULL DEFAULT 1",
				}
			}),
			Down: seq(
				dropColumn("users", "enable_login"),
				stmts("DROP TABLE IF EXISTS user_preferences"),
			),
		},
		{
			Version: 8,
			Name:    "fulltext_indexes",
			// MySQL only; SQLite searches fall back to LIKE and the
			// version is a recorded no-op there.
			Up: dstmts(func(d Dialect) []string {
				if d.Name() != "mysql" {
					return nil
				}
				return []string{
					"ALTER TABLE projects ADD FULLTEXT projects_fti (name, description)",
					"ALTER TABLE stories ADD FULLTEXT stories_fti (title, description)",
					"ALTER TABLE tasks ADD FULLTEXT tasks_fti (title)",
					"ALTER TABLE comments ADD FULLTEXT comments_fti (content)",
					"ALTER TABLE users ADD FULLTEXT users_fti (full_name, email)",
				}
			}),
			Down: dstmts(func(d Dialect) []string {
				if d.Name() != "mysql" {
					return nil
				}
				return []string{
					"ALTER TABLE users DROP INDEX users_fti",
					"ALTER TABLE comments DROP INDEX comments_fti",
					"ALTER TABLE tasks DROP INDEX tasks_fti",
					"ALTER TABLE stories DROP INDEX stories_fti",
					"ALTER TABLE projects DROP INDEX projects_fti",
				}
			}),
		},
		{
			Version: 9,
			Name:    "worklists_and_boards",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE worklists (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	title VARCHAR(100) NOT NULL,
	creator_id BIGINT NOT NULL,
	project_id BIGINT,
	private BOOLEAN NOT NULL DEFAULT 0,
	archived BOOLEAN NOT NULL DEFAULT 0,
	automatic BOOLEAN NOT NULL DEFAULT 0
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE worklist_items (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	list_id BIGINT NOT NULL,
	item_type VARCHAR(50) NOT NULL,
	item_id BIGINT NOT NULL,
	list_position INTEGER NOT NULL,
	archived BOOLEAN NOT NULL DEFAULT 0,
	resolved_at %s,
	FOREIGN KEY (list_id) REFERENCES worklists (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE worklist_filters (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	list_id BIGINT NOT NULL,
	filter_type VARCHAR(50) NOT NULL,
	FOREIGN KEY (list_id) REFERENCES worklists (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE filter_criteria (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	filter_id BIGINT NOT NULL,
	title VARCHAR(100) NOT NULL,
	field VARCHAR(50) NOT NULL,
	value VARCHAR(255) NOT NULL,
	negative BOOLEAN NOT NULL DEFAULT 0,
	FOREIGN KEY (filter_id) REFERENCES worklist_filters (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE boards (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	title VARCHAR(100) NOT NULL,
	creator_id BIGINT NOT NULL,
	project_id BIGINT,
	private BOOLEAN NOT NULL DEFAULT 0,
	archived BOOLEAN NOT NULL DEFAULT 0
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE board_worklists (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	board_id BIGINT NOT NULL,
	list_id BIGINT NOT NULL,
	position INTEGER NOT NULL,
	FOREIGN KEY (board_id) REFERENCES boards (id),
	FOREIGN KEY (list_id) REFERENCES worklists (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime()),
					fmt.Sprintf(`CREATE TABLE worklist_permissions (
	worklist_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (worklist_id, permission_id)
)`),
					fmt.Sprintf(`CREATE TABLE board_permissions (
	board_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (board_id, permission_id)
)`),
					"ALTER TABLE timeline_events ADD COLUMN worklist_id BIGINT",
					"ALTER TABLE timeline_events ADD COLUMN board_id BIGINT",
				}
			}),
			Down: seq(
				dropColumn("timeline_events", "board_id"),
				dropColumn("timeline_events", "worklist_id"),
				stmts(
					"DROP TABLE IF EXISTS board_permissions",
					"DROP TABLE IF EXISTS worklist_permissions",
					"DROP TABLE IF EXISTS board_worklists",
					"DROP TABLE IF EXISTS boards",
					"DROP TABLE IF EXISTS filter_criteria",
					"DROP TABLE IF EXISTS worklist_filters",
					"DROP TABLE IF EXISTS worklist_items",
					"DROP TABLE IF EXISTS worklists",
				),
			),
		},
		{
			Version: 10,
			Name:    "due_dates",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE due_dates (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	date %s,
	creator_id BIGINT NOT NULL,
	private BOOLEAN NOT NULL DEFAULT 0
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.Datetime()),
					`CREATE TABLE story_due_dates (
	story_id BIGINT NOT NULL,
	due_date_id BIGINT NOT NULL,
	UNIQUE (story_id, due_date_id)
)`,
					`CREATE TABLE task_due_dates (
	task_id BIGINT NOT NULL,
	due_date_id BIGINT NOT NULL,
	UNIQUE (task_id, due_date_id)
)`,
					`CREATE TABLE board_due_dates (
	board_id BIGINT NOT NULL,
	due_date_id BIGINT NOT NULL,
	UNIQUE (board_id, due_date_id)
)`,
					`CREATE TABLE worklist_due_dates (
	worklist_id BIGINT NOT NULL,
	due_date_id BIGINT NOT NULL,
	UNIQUE (worklist_id, due_date_id)
)`,
					`CREATE TABLE due_date_permissions (
	due_date_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (due_date_id, permission_id)
)`,
					"ALTER TABLE worklist_items ADD COLUMN display_due_date BIGINT",
				}
			}),
			Down: seq(
				dropColumn("worklist_items", "display_due_date"),
				stmts(
					"DROP TABLE IF EXISTS due_date_permissions",
					"DROP TABLE IF EXISTS worklist_due_dates",
					"DROP TABLE IF EXISTS board_due_dates",
					"DROP TABLE IF EXISTS task_due_dates",
					"DROP TABLE IF EXISTS story_due_dates",
					"DROP TABLE IF EXISTS due_dates",
				),
			),
		},
		{
			Version: 11,
			Name:    "comment_replies_and_history",
			Up: dstmts(func(d Dialect) []string {
				return []string{
					"ALTER TABLE comments ADD COLUMN in_reply_to BIGINT",
					fmt.Sprintf(`CREATE TABLE comments_history (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	comment_id BIGINT NOT NULL,
	content %s,
	FOREIGN KEY (comment_id) REFERENCES comments (id)
)`, d.PrimaryKey(), d.Datetime(), d.Datetime(), d.MediumText()),
				}
			}),
			Down: seq(
				stmts("DROP TABLE IF EXISTS comments_history"),
				dropColumn("comments", "in_reply_to"),
			),
		},
		{
			Version: 12,
			Name:    "private_stories",
			Up: stmts(
				"ALTER TABLE stories ADD COLUMN private BOOLEAN NOT NULL DEFAULT 0",
				`CREATE TABLE story_permissions (
	story_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (story_id, permission_id)
)`,
			),
			Down: seq(
				stmts("DROP TABLE IF EXISTS story_permissions"),
				dropColumn("stories", "private"),
			),
		},
	}
}

func initialSchemaUp(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
	pk, dt := d.PrimaryKey(), d.Datetime()
	statements := []string{
		fmt.Sprintf(`CREATE TABLE users (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	openid VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	full_name VARCHAR(255) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	is_superuser BOOLEAN NOT NULL DEFAULT 0,
	last_login %s,
	UNIQUE (email)
)`, pk, dt, dt, dt),
		fmt.Sprintf(`CREATE TABLE teams (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(255) NOT NULL,
	UNIQUE (name)
)`, pk, dt, dt),
		`CREATE TABLE team_memberships (
	team_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	UNIQUE (team_id, user_id)
)`,
		fmt.Sprintf(`CREATE TABLE permissions (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	codename VARCHAR(255) NOT NULL,
	UNIQUE (name)
)`, pk, dt, dt),
		`CREATE TABLE user_permissions (
	user_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (user_id, permission_id)
)`,
		`CREATE TABLE team_permissions (
	team_id BIGINT NOT NULL,
	permission_id BIGINT NOT NULL,
	UNIQUE (team_id, permission_id)
)`,
		fmt.Sprintf(`CREATE TABLE projects (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	description %s,
	repo_url VARCHAR(255) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	autocreate_branches BOOLEAN NOT NULL DEFAULT 0,
	UNIQUE (name)
)`, pk, dt, dt, d.MediumText()),
		fmt.Sprintf(`CREATE TABLE project_groups (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(100) NOT NULL,
	title VARCHAR(255) NOT NULL DEFAULT '',
	UNIQUE (name)
)`, pk, dt, dt),
		`CREATE TABLE project_group_mapping (
	project_group_id BIGINT NOT NULL,
	project_id BIGINT NOT NULL,
	UNIQUE (project_group_id, project_id)
)`,
		fmt.Sprintf(`CREATE TABLE story_types (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(50) NOT NULL,
	icon VARCHAR(50) NOT NULL DEFAULT '',
	restricted BOOLEAN NOT NULL DEFAULT 0,
	private BOOLEAN NOT NULL DEFAULT 0,
	visible BOOLEAN NOT NULL DEFAULT 1
)`, pk, dt, dt),
		`CREATE TABLE may_mutate_to (
	story_type_id_from BIGINT NOT NULL,
	story_type_id_to BIGINT NOT NULL,
	UNIQUE (story_type_id_from, story_type_id_to)
)`,
		fmt.Sprintf(`CREATE TABLE stories (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	creator_id BIGINT NOT NULL,
	title VARCHAR(255) NOT NULL,
	description %s,
	story_type_id BIGINT NOT NULL DEFAULT 1,
	priority VARCHAR(50),
	is_active BOOLEAN NOT NULL DEFAULT 1,
	FOREIGN KEY (creator_id) REFERENCES users (id)
)`, pk, dt, dt, d.MediumText()),
		fmt.Sprintf(`CREATE TABLE tasks (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	creator_id BIGINT NOT NULL,
	title VARCHAR(255) NOT NULL,
	status VARCHAR(50) NOT NULL DEFAULT 'todo',
	priority VARCHAR(50) NOT NULL DEFAULT 'medium',
	story_id BIGINT NOT NULL,
	project_id BIGINT NOT NULL,
	assignee_id BIGINT,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	FOREIGN KEY (story_id) REFERENCES stories (id),
	FOREIGN KEY (project_id) REFERENCES projects (id)
)`, pk, dt, dt),
		fmt.Sprintf(`CREATE TABLE story_tags (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	name VARCHAR(50) NOT NULL,
	UNIQUE (name)
)`, pk, dt, dt),
		`CREATE TABLE story_storytags (
	story_id BIGINT NOT NULL,
	tag_id BIGINT NOT NULL,
	UNIQUE (story_id, tag_id)
)`,
		fmt.Sprintf(`CREATE TABLE comments (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	content %s,
	is_active BOOLEAN NOT NULL DEFAULT 1
)`, pk, dt, dt, d.MediumText()),
		fmt.Sprintf(`CREATE TABLE timeline_events (
	id %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	story_id BIGINT,
	comment_id BIGINT,
	author_id BIGINT NOT NULL,
	event_type VARCHAR(100) NOT NULL,
	event_info %s
)`, pk, dt, dt, d.MediumText()),
		"CREATE INDEX timeline_events_story_idx ON timeline_events (story_id)",
		"CREATE INDEX tasks_story_idx ON tasks (story_id)",
		"CREATE INDEX users_openid_idx ON users (openid)",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), classifyError(err))
		}
	}
	return nil
}

// seedStoryTypes inserts the built-in story types and their allowed
// mutation pairs: bug <-> feature, vulnerabilities flow toward bug.
func seedStoryTypes(ctx context.Context, tx *sqlx.Tx, d Dialect) error {
	now := nowNaiveUTC()
	types := []struct {
		name, icon                  string
		restricted, private, hidden bool
	}{
		{"bug", "fa-bug", false, false, false},
		{"feature", "fa-lightbulb-o", true, false, false},
		{"private_vulnerability", "fa-lock", false, true, false},
		{"public_vulnerability", "fa-bomb", false, false, true},
	}
	for _, t := range types {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO story_types (created_at, updated_at, name, icon, restricted, private, visible)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			now, now, t.name, t.icon, t.restricted, t.private, !t.hidden)
		if err != nil {
			return fmt.Errorf("seed story type %s: %w", t.name, classifyError(err))
		}
	}

	mutations := [][2]int64{{1, 4}, {1, 2}, {2, 1}, {3, 4}, {3, 1}, {4, 1}}
	for _, m := range mutations {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO may_mutate_to (story_type_id_from, story_type_id_to) VALUES (?, ?)",
			m[0], m[1])
		if err != nil {
			return fmt.Errorf("seed story type mutation: %w", classifyError(err))
		}
	}
	return nil
}
