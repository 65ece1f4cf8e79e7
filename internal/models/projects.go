// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package models

import "regexp"

// ProjectNamePattern constrains project names: alphanumeric runs optionally
// joined by single underscore, dash, dot or slash separators.
var ProjectNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+([_\-./]?[A-Za-z0-9]+)*$`)

// ProjectNameMinLength is the minimum length of a project name.
const ProjectNameMinLength = 3

// ValidProjectName reports whether name satisfies the project name rules.
func ValidProjectName(name string) bool {
	return len(name) >= ProjectNameMinLength && ProjectNamePattern.MatchString(name)
}

// Project is a repository under development. Creating a project also
// creates its restricted master branch; that happens in the project create
// service path, not in the schema.
type Project struct {
	Base
	Name               string `db:"name" json:"name"`
	Description        string `db:"description" json:"description"`
	RepoURL            string `db:"repo_url" json:"repo_url"`
	IsActive           bool   `db:"is_active" json:"is_active"`
	AutocreateBranches bool   `db:"autocreate_branches" json:"autocreate_branches"`
}

// ProjectGroup is a named collection of projects.
type ProjectGroup struct {
	Base
	Name  string `db:"name" json:"name"`
	Title string `db:"title" json:"title"`
}

// ProjectGroupMapping links projects into groups.
type ProjectGroupMapping struct {
	ProjectGroupID int64 `db:"project_group_id" json:"project_group_id"`
	ProjectID      int64 `db:"project_id" json:"project_id"`
}

// MasterBranchName is the branch every project owns from birth.
const MasterBranchName = "master"

// Branch is a line of development within a project. Name is unique within
// the project; the master branch is always restricted.
type Branch struct {
	Base
	Name           string   `db:"name" json:"name"`
	ProjectID      int64    `db:"project_id" json:"project_id"`
	Expired        bool     `db:"expired" json:"expired"`
	ExpirationDate *UTCTime `db:"expiration_date" json:"expiration_date,omitempty"`
	Autocreated    bool     `db:"autocreated" json:"autocreated"`
	Restricted     bool     `db:"restricted" json:"restricted"`
}

// Milestone is a dated target within a branch; name is unique per branch.
type Milestone struct {
	Base
	Name           string   `db:"name" json:"name"`
	BranchID       int64    `db:"branch_id" json:"branch_id"`
	Expired        bool     `db:"expired" json:"expired"`
	ExpirationDate *UTCTime `db:"expiration_date" json:"expiration_date,omitempty"`
}
