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

var projectSortable = map[string]bool{
	"name": true, "created_at": true, "updated_at": true,
}

const projectColumns = "id, created_at, updated_at, name, description, repo_url, is_active, autocreate_branches"

// CreateProject inserts a project and its restricted master branch. The
// branch is born with the project; no project exists without one.
func (s *Session) CreateProject(ctx context.Context, project *models.Project) error {
	if !models.ValidProjectName(project.Name) {
		return NewClientError("invalid project name %q", project.Name)
	}
	if err := validUnicode(project.Name, project.Description); err != nil {
		return err
	}
	touch(&project.Base)
	id, err := s.insert(ctx, `
		INSERT INTO projects (created_at, updated_at, name, description,
			repo_url, is_active, autocreate_branches)
		VALUES (:created_at, :updated_at, :name, :description,
			:repo_url, :is_active, :autocreate_branches)`, project)
	if err != nil {
		return err
	}
	project.ID = id

	master := &models.Branch{
		Name:        models.MasterBranchName,
		ProjectID:   project.ID,
		Autocreated: true,
		Restricted:  true,
	}
	return s.CreateBranch(ctx, master)
}

// GetProject fetches a project by id.
func (s *Session) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := s.getOne(ctx, &project,
		fmt.Sprintf("SELECT %s FROM projects WHERE id = ?", projectColumns), id)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectByName fetches a project by its unique name.
func (s *Session) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	var project models.Project
	err := s.getOne(ctx, &project,
		fmt.Sprintf("SELECT %s FROM projects WHERE name = ?", projectColumns), name)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns projects matching q.
func (s *Session) ListProjects(ctx context.Context, q Query) ([]models.Project, error) {
	var projects []models.Project
	err := s.selectList(ctx, &projects, "projects", projectColumns, projectSortable, q, "")
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject rewrites the mutable columns of a project.
func (s *Session) UpdateProject(ctx context.Context, project *models.Project) error {
	if !models.ValidProjectName(project.Name) {
		return NewClientError("invalid project name %q", project.Name)
	}
	if err := validUnicode(project.Name, project.Description); err != nil {
		return err
	}
	project.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE projects SET updated_at = ?, name = ?, description = ?,
			repo_url = ?, is_active = ?, autocreate_branches = ?
		WHERE id = ?`,
		project.UpdatedAt, project.Name, project.Description, project.RepoURL,
		project.IsActive, project.AutocreateBranches, project.ID)
}

// CreateProjectGroup inserts a named group.
func (s *Session) CreateProjectGroup(ctx context.Context, group *models.ProjectGroup) error {
	touch(&group.Base)
	id, err := s.insert(ctx, `
		INSERT INTO project_groups (created_at, updated_at, name, title)
		VALUES (:created_at, :updated_at, :name, :title)`, group)
	if err != nil {
		return err
	}
	group.ID = id
	return nil
}

// GetProjectGroup fetches a group by id.
func (s *Session) GetProjectGroup(ctx context.Context, id int64) (*models.ProjectGroup, error) {
	var group models.ProjectGroup
	err := s.getOne(ctx, &group,
		"SELECT id, created_at, updated_at, name, title FROM project_groups WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// ListProjectGroups returns groups matching q.
func (s *Session) ListProjectGroups(ctx context.Context, q Query) ([]models.ProjectGroup, error) {
	var groups []models.ProjectGroup
	sortable := map[string]bool{"name": true, "title": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &groups, "project_groups",
		"id, created_at, updated_at, name, title", sortable, q, "")
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateProjectGroup rewrites a group's name and title.
func (s *Session) UpdateProjectGroup(ctx context.Context, group *models.ProjectGroup) error {
	group.UpdatedAt = models.Now()
	return s.execAffecting(ctx,
		"UPDATE project_groups SET updated_at = ?, name = ?, title = ? WHERE id = ?",
		group.UpdatedAt, group.Name, group.Title, group.ID)
}

// DeleteProjectGroup removes an empty group. A group that still maps
// projects refuses deletion.
func (s *Session) DeleteProjectGroup(ctx context.Context, id int64) error {
	var count int
	err := s.tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM project_group_mapping WHERE project_group_id = ?", id)
	if err != nil {
		return classifyError(err)
	}
	if count > 0 {
		return NewClientError("project group %d still contains %d projects", id, count)
	}
	if err := s.execAffecting(ctx,
		"DELETE FROM project_groups WHERE id = ?", id); err != nil {
		return err
	}
	return s.DeleteTargetSubscriptions(ctx, models.TargetProjectGroup, id)
}

// AddProjectToGroup maps a project into a group. Adding a project twice is
// a client error, not a constraint surprise.
func (s *Session) AddProjectToGroup(ctx context.Context, groupID, projectID int64) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := s.GetProjectGroup(ctx, groupID); err != nil {
		return err
	}
	err := s.exec(ctx,
		"INSERT INTO project_group_mapping (project_group_id, project_id) VALUES (?, ?)",
		groupID, projectID)
	if errors.Is(err, ErrDuplicateEntry) {
		return NewClientError("project %d is already in group %d", projectID, groupID)
	}
	return err
}

// RemoveProjectFromGroup unmaps a project; removing an absent project is a
// client error.
func (s *Session) RemoveProjectFromGroup(ctx context.Context, groupID, projectID int64) error {
	err := s.execAffecting(ctx,
		"DELETE FROM project_group_mapping WHERE project_group_id = ? AND project_id = ?",
		groupID, projectID)
	if errors.Is(err, ErrNotFound) {
		return NewClientError("project %d is not in group %d", projectID, groupID)
	}
	return err
}

// GroupProjectIDs returns the project ids mapped into a group.
func (s *Session) GroupProjectIDs(ctx context.Context, groupID int64) ([]int64, error) {
	var ids []int64
	err := s.tx.SelectContext(ctx, &ids,
		"SELECT project_id FROM project_group_mapping WHERE project_group_id = ?", groupID)
	if err != nil {
		return nil, classifyError(err)
	}
	return ids, nil
}

// ProjectGroupIDs returns the ids of groups containing a project.
func (s *Session) ProjectGroupIDs(ctx context.Context, projectID int64) ([]int64, error) {
	var ids []int64
	err := s.tx.SelectContext(ctx, &ids,
		"SELECT project_group_id FROM project_group_mapping WHERE project_id = ?", projectID)
	if err != nil {
		return nil, classifyError(err)
	}
	return ids, nil
}

const branchColumns = "id, created_at, updated_at, name, project_id, expired, expiration_date, autocreated, restricted"

// CreateBranch inserts a branch; name is unique within the project.
func (s *Session) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ExpirationDate != nil {
		if err := ensureAware(branch.ExpirationDate.Time); err != nil {
			return err
		}
	}
	touch(&branch.Base)
	id, err := s.insert(ctx, `
		INSERT INTO branches (created_at, updated_at, name, project_id,
			expired, expiration_date, autocreated, restricted)
		VALUES (:created_at, :updated_at, :name, :project_id,
			:expired, :expiration_date, :autocreated, :restricted)`, branch)
	if err != nil {
		return err
	}
	branch.ID = id
	return nil
}

// GetBranch fetches a branch by id.
func (s *Session) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	var branch models.Branch
	err := s.getOne(ctx, &branch,
		fmt.Sprintf("SELECT %s FROM branches WHERE id = ?", branchColumns), id)
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// GetMasterBranch fetches a project's master branch.
func (s *Session) GetMasterBranch(ctx context.Context, projectID int64) (*models.Branch, error) {
	var branch models.Branch
	err := s.getOne(ctx, &branch,
		fmt.Sprintf("SELECT %s FROM branches WHERE project_id = ? AND name = ?", branchColumns),
		projectID, models.MasterBranchName)
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// ListBranches returns branches matching q.
func (s *Session) ListBranches(ctx context.Context, q Query) ([]models.Branch, error) {
	var branches []models.Branch
	sortable := map[string]bool{"name": true, "project_id": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &branches, "branches", branchColumns, sortable, q, "")
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// UpdateBranch rewrites a branch. The autocreated master branch refuses
// renames.
func (s *Session) UpdateBranch(ctx context.Context, branch *models.Branch) error {
	current, err := s.GetBranch(ctx, branch.ID)
	if err != nil {
		return err
	}
	if current.Restricted && branch.Name != current.Name {
		return NewClientError("branch %q is restricted and cannot be renamed", current.Name)
	}
	if branch.ExpirationDate != nil {
		if err := ensureAware(branch.ExpirationDate.Time); err != nil {
			return err
		}
	}
	branch.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE branches SET updated_at = ?, name = ?, expired = ?,
			expiration_date = ? WHERE id = ?`,
		branch.UpdatedAt, branch.Name, branch.Expired, branch.ExpirationDate, branch.ID)
}

const milestoneColumns = "id, created_at, updated_at, name, branch_id, expired, expiration_date"

// CreateMilestone inserts a milestone; name is unique within the branch.
func (s *Session) CreateMilestone(ctx context.Context, milestone *models.Milestone) error {
	if milestone.ExpirationDate != nil {
		if err := ensureAware(milestone.ExpirationDate.Time); err != nil {
			return err
		}
	}
	touch(&milestone.Base)
	id, err := s.insert(ctx, `
		INSERT INTO milestones (created_at, updated_at, name, branch_id,
			expired, expiration_date)
		VALUES (:created_at, :updated_at, :name, :branch_id,
			:expired, :expiration_date)`, milestone)
	if err != nil {
		return err
	}
	milestone.ID = id
	return nil
}

// GetMilestone fetches a milestone by id.
func (s *Session) GetMilestone(ctx context.Context, id int64) (*models.Milestone, error) {
	var milestone models.Milestone
	err := s.getOne(ctx, &milestone,
		fmt.Sprintf("SELECT %s FROM milestones WHERE id = ?", milestoneColumns), id)
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

// ListMilestones returns milestones matching q.
func (s *Session) ListMilestones(ctx context.Context, q Query) ([]models.Milestone, error) {
	var milestones []models.Milestone
	sortable := map[string]bool{"name": true, "branch_id": true, "created_at": true, "updated_at": true}
	err := s.selectList(ctx, &milestones, "milestones", milestoneColumns, sortable, q, "")
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

// UpdateMilestone rewrites a milestone.
func (s *Session) UpdateMilestone(ctx context.Context, milestone *models.Milestone) error {
	if milestone.ExpirationDate != nil {
		if err := ensureAware(milestone.ExpirationDate.Time); err != nil {
			return err
		}
	}
	milestone.UpdatedAt = models.Now()
	return s.execAffecting(ctx, `
		UPDATE milestones SET updated_at = ?, name = ?, expired = ?,
			expiration_date = ? WHERE id = ?`,
		milestone.UpdatedAt, milestone.Name, milestone.Expired,
		milestone.ExpirationDate, milestone.ID)
}
