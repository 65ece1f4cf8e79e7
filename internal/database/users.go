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

var userSortable = map[string]bool{
	"openid": true, "email": true, "full_name": true, "created_at": true,
	"updated_at": true, "last_login": true,
}

const userColumns = "id, created_at, updated_at, openid, email, full_name, is_active, is_superuser, enable_login, last_login"

// key is a reserved word on MySQL; quote it everywhere.
const prefColumns = "id, created_at, updated_at, user_id, `key`, value, type"

// CreateUser inserts a new account. Email must be unique.
func (s *Session) CreateUser(ctx context.Context, user *models.User) error {
	if user.LastLogin != nil {
		if err := ensureAware(user.LastLogin.Time); err != nil {
			return err
		}
	}
	touch(&user.Base)
	id, err := s.insert(ctx, `
		INSERT INTO users (created_at, updated_at, openid, email, full_name,
			is_active, is_superuser, enable_login, last_login)
		VALUES (:created_at, :updated_at, :openid, :email, :full_name,
			:is_active, :is_superuser, :enable_login, :last_login)`, user)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUser fetches a user by id.
func (s *Session) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.getOne(ctx, &user,
		fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns), id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByOpenID fetches a user by external identity.
func (s *Session) GetUserByOpenID(ctx context.Context, openid string) (*models.User, error) {
	var user models.User
	err := s.getOne(ctx, &user,
		fmt.Sprintf("SELECT %s FROM users WHERE openid = ?", userColumns), openid)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users matching q.
func (s *Session) ListUsers(ctx context.Context, q Query) ([]models.User, error) {
	var users []models.User
	err := s.selectList(ctx, &users, "users", userColumns, userSortable, q, "")
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser rewrites the mutable columns of a user row.
func (s *Session) UpdateUser(ctx context.Context, user *models.User) error {
	if user.LastLogin != nil {
		if err := ensureAware(user.LastLogin.Time); err != nil {
			return err
		}
	}
	user.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE users SET updated_at = ?, email = ?, full_name = ?,
			is_active = ?, is_superuser = ?, enable_login = ?, last_login = ?
		WHERE id = ?`,
		user.UpdatedAt, user.Email, user.FullName, user.IsActive,
		user.IsSuperuser, user.EnableLogin, user.LastLogin, user.ID)
}

// GetPreferences returns the user's full preference map, cast to the
// declared types.
func (s *Session) GetPreferences(ctx context.Context, userID int64) (map[string]any, error) {
	var rows []models.UserPreference
	err := s.tx.SelectContext(ctx, &rows,
		"SELECT "+prefColumns+" FROM user_preferences WHERE user_id = ?", userID)
	if err != nil {
		return nil, classifyError(err)
	}
	prefs := make(map[string]any, len(rows))
	for i := range rows {
		value, err := rows[i].CastValue()
		if err != nil {
			return nil, fmt.Errorf("%w: preference %s: %v", ErrValueError, rows[i].Key, err)
		}
		prefs[rows[i].Key] = value
	}
	return prefs, nil
}

// GetPreference returns one preference value as its stored string, or ""
// when unset.
func (s *Session) GetPreference(ctx context.Context, userID int64, key string) (string, error) {
	var pref models.UserPreference
	err := s.getOne(ctx, &pref,
		"SELECT "+prefColumns+" FROM user_preferences WHERE user_id = ? AND `key` = ?",
		userID, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return pref.Value, nil
}

// SetPreferences merges values into the user's preference map. A nil value
// deletes the key.
func (s *Session) SetPreferences(ctx context.Context, userID int64, values map[string]any) error {
	for key, value := range values {
		if value == nil {
			if err := s.exec(ctx,
				"DELETE FROM user_preferences WHERE user_id = ? AND `key` = ?",
				userID, key); err != nil {
				return err
			}
			continue
		}
		pref, err := models.NewPreference(userID, key, value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValueError, err)
		}
		touch(&pref.Base)
		var existingID int64
		err = classifyError(s.tx.GetContext(ctx, &existingID,
			"SELECT id FROM user_preferences WHERE user_id = ? AND `key` = ?",
			userID, key))
		switch {
		case err == nil:
			if err := s.exec(ctx, `
				UPDATE user_preferences SET updated_at = ?, value = ?, type = ?
				WHERE id = ?`,
				pref.UpdatedAt, pref.Value, pref.Type, existingID); err != nil {
				return err
			}
		case errors.Is(err, ErrNotFound):
			if _, err := s.insert(ctx,
				"INSERT INTO user_preferences (created_at, updated_at, user_id, `key`, value, type) "+
					"VALUES (:created_at, :updated_at, :user_id, :key, :value, :type)",
				pref); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// CreateTeam inserts a named team.
func (s *Session) CreateTeam(ctx context.Context, team *models.Team) error {
	touch(&team.Base)
	id, err := s.insert(ctx, `
		INSERT INTO teams (created_at, updated_at, name)
		VALUES (:created_at, :updated_at, :name)`, team)
	if err != nil {
		return err
	}
	team.ID = id
	return nil
}

// GetTeam fetches a team by id.
func (s *Session) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var team models.Team
	err := s.getOne(ctx, &team,
		"SELECT id, created_at, updated_at, name FROM teams WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams returns teams matching q.
func (s *Session) ListTeams(ctx context.Context, q Query) ([]models.Team, error) {
	var teams []models.Team
	sortable := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &teams, "teams",
		"id, created_at, updated_at, name", sortable, q, "")
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// AddTeamMember links a user into a team; adding twice is a client error.
func (s *Session) AddTeamMember(ctx context.Context, teamID, userID int64) error {
	err := s.exec(ctx,
		"INSERT INTO team_memberships (team_id, user_id) VALUES (?, ?)",
		teamID, userID)
	if errors.Is(err, ErrDuplicateEntry) {
		return NewClientError("user %d is already in team %d", userID, teamID)
	}
	return err
}

// RemoveTeamMember unlinks a user from a team.
func (s *Session) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	return s.execAffecting(ctx,
		"DELETE FROM team_memberships WHERE team_id = ? AND user_id = ?",
		teamID, userID)
}

// TeamMemberIDs returns the user ids belonging to a team.
func (s *Session) TeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error) {
	var ids []int64
	err := s.tx.SelectContext(ctx, &ids,
		"SELECT user_id FROM team_memberships WHERE team_id = ?", teamID)
	if err != nil {
		return nil, classifyError(err)
	}
	return ids, nil
}

// CreatePermission inserts a named permission.
func (s *Session) CreatePermission(ctx context.Context, perm *models.Permission) error {
	touch(&perm.Base)
	id, err := s.insert(ctx, `
		INSERT INTO permissions (created_at, updated_at, name, codename)
		VALUES (:created_at, :updated_at, :name, :codename)`, perm)
	if err != nil {
		return err
	}
	perm.ID = id
	return nil
}

// GrantUserPermission attaches a permission to a user.
func (s *Session) GrantUserPermission(ctx context.Context, userID, permissionID int64) error {
	err := s.exec(ctx,
		"INSERT INTO user_permissions (user_id, permission_id) VALUES (?, ?)",
		userID, permissionID)
	if errors.Is(err, ErrDuplicateEntry) {
		return nil
	}
	return err
}

// UserPermissions returns the codenames granted to a user directly or
// through team membership.
func (s *Session) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	var codenames []string
	err := s.tx.SelectContext(ctx, &codenames, `
		SELECT DISTINCT p.codename FROM permissions p
		LEFT JOIN user_permissions up ON up.permission_id = p.id
		LEFT JOIN team_permissions tp ON tp.permission_id = p.id
		LEFT JOIN team_memberships tm ON tm.team_id = tp.team_id
		WHERE up.user_id = ? OR tm.user_id = ?`, userID, userID)
	if err != nil {
		return nil, classifyError(err)
	}
	return codenames, nil
}
