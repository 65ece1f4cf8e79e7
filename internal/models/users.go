// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

import (
	"fmt"
	"strconv"
)

// User is an account known to StoryBoard. OpenID is the stable external
// identity; Email is unique.
type User struct {
	Base
	OpenID      string   `db:"openid" json:"openid"`
	Email       string   `db:"email" json:"email"`
	FullName    string   `db:"full_name" json:"full_name"`
	IsActive    bool     `db:"is_active" json:"is_active"`
	IsSuperuser bool     `db:"is_superuser" json:"is_superuser"`
	EnableLogin bool     `db:"enable_login" json:"enable_login"`
	LastLogin   *UTCTime `db:"last_login" json:"last_login,omitempty"`
}

// Preference value types.
const (
	PreferenceString = "string"
	PreferenceInt    = "int"
	PreferenceBool   = "bool"
	PreferenceFloat  = "float"
)

// UserPreference is one key of a user's typed key/value preference map.
type UserPreference struct {
	Base
	UserID int64  `db:"user_id" json:"user_id"`
	Key    string `db:"key" json:"key"`
	Value  string `db:"value" json:"value"`
	Type   string `db:"type" json:"type"`
}

// CastValue converts the stored string to the declared type.
func (p *UserPreference) CastValue() (any, error) {
	switch p.Type {
	case PreferenceString:
		return p.Value, nil
	case PreferenceInt:
		return strconv.Atoi(p.Value)
	case PreferenceBool:
		return strconv.ParseBool(p.Value)
	case PreferenceFloat:
		return strconv.ParseFloat(p.Value, 64)
	default:
		return nil, fmt.Errorf("unknown preference type %q", p.Type)
	}
}

// NewPreference builds a preference row from a Go value, recording its type.
func NewPreference(userID int64, key string, value any) (*UserPreference, error) {
	pref := &UserPreference{UserID: userID, Key: key}
	switch v := value.(type) {
	case string:
		pref.Value, pref.Type = v, PreferenceString
	case int:
		pref.Value, pref.Type = strconv.Itoa(v), PreferenceInt
	case int64:
		pref.Value, pref.Type = strconv.FormatInt(v, 10), PreferenceInt
	case bool:
		pref.Value, pref.Type = strconv.FormatBool(v), PreferenceBool
	case float64:
		pref.Value, pref.Type = strconv.FormatFloat(v, 'f', -1, 64), PreferenceFloat
	default:
		return nil, fmt.Errorf("unsupported preference type %T", value)
	}
	return pref, nil
}

// Team is a named set of users.
type Team struct {
	Base
	Name string `db:"name" json:"name"`
}

// TeamMember links users into teams.
type TeamMember struct {
	TeamID int64 `db:"team_id" json:"team_id"`
	UserID int64 `db:"user_id" json:"user_id"`
}

// Permission is a named grant attached to users, teams, or entities such as
// boards and worklists.
type Permission struct {
	Base
	Name     string `db:"name" json:"name"`
	Codename string `db:"codename" json:"codename"`
}
