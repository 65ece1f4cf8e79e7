// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"testing"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// TestSubscriberContainmentWalk covers the fan-out resolution: a comment on
// a story must reach direct story subscribers plus anyone watching a
// project or project group that contains one of the story's tasks.
func TestSubscriberContainmentWalk(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	storyWatcher := mustCreateUser(t, session, "story-watcher")
	groupWatcher := mustCreateUser(t, session, "group-watcher")
	bystander := mustCreateUser(t, session, "bystander")

	project := &models.Project{Name: "openstack/nova", IsActive: true}
	if err := session.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	group := &models.ProjectGroup{Name: "compute", Title: "Compute Program"}
	if err := session.CreateProjectGroup(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := session.AddProjectToGroup(ctx, group.ID, project.ID); err != nil {
		t.Fatalf("add project to group: %v", err)
	}

	story := &models.Story{CreatorID: author.ID, Title: "Watched story"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	task := &models.Task{
		CreatorID: author.ID,
		Title:     "Watched task",
		StoryID:   story.ID,
		ProjectID: project.ID,
	}
	if err := session.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	subs := []models.Subscription{
		{UserID: storyWatcher.ID, TargetType: "story", TargetID: story.ID},
		{UserID: groupWatcher.ID, TargetType: "project_group", TargetID: group.ID},
		{UserID: bystander.ID, TargetType: "story", TargetID: story.ID + 100},
	}
	for i := range subs {
		if i == 2 {
			// The bystander watches an unrelated story that must exist.
			other := &models.Story{CreatorID: author.ID, Title: "Unrelated"}
			if err := session.CreateStory(ctx, other); err != nil {
				t.Fatalf("create unrelated story: %v", err)
			}
			subs[i].TargetID = other.ID
		}
		if err := session.CreateSubscription(ctx, &subs[i]); err != nil {
			t.Fatalf("create subscription %d: %v", i, err)
		}
	}

	got, err := session.SubscriberIDs(ctx, "story", story.ID)
	if err != nil {
		t.Fatalf("subscriber walk: %v", err)
	}
	want := []int64{storyWatcher.ID, groupWatcher.ID}
	if len(got) != len(want) {
		t.Fatalf("subscribers = %v, want %v", got, want)
	}
	seen := map[int64]bool{}
	for _, id := range got {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			t.Fatalf("subscribers = %v, missing %d", got, id)
		}
	}
}

func TestSubscriberWalkDeduplicates(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	watcher := mustCreateUser(t, session, "watcher")

	project := &models.Project{Name: "openstack/glance", IsActive: true}
	if err := session.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	story := &models.Story{CreatorID: author.ID, Title: "Double-watched"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	task := &models.Task{
		CreatorID: author.ID,
		Title:     "Task",
		StoryID:   story.ID,
		ProjectID: project.ID,
	}
	if err := session.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Watching both the story and its project yields one entry, not two.
	for _, sub := range []models.Subscription{
		{UserID: watcher.ID, TargetType: "story", TargetID: story.ID},
		{UserID: watcher.ID, TargetType: "project", TargetID: project.ID},
	} {
		sub := sub
		if err := session.CreateSubscription(ctx, &sub); err != nil {
			t.Fatalf("create subscription: %v", err)
		}
	}

	got, err := session.SubscriberIDs(ctx, "story", story.ID)
	if err != nil {
		t.Fatalf("subscriber walk: %v", err)
	}
	if len(got) != 1 || got[0] != watcher.ID {
		t.Fatalf("subscribers = %v, want [%d]", got, watcher.ID)
	}
}

func TestCreateSubscriptionRejectsMissingTarget(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	user := mustCreateUser(t, session, "watcher")

	sub := &models.Subscription{UserID: user.ID, TargetType: "story", TargetID: 999}
	if err := session.CreateSubscription(context.Background(), sub); err == nil {
		t.Fatal("expected missing target to be rejected")
	}
}

func TestDeleteTargetSubscriptions(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	watcher := mustCreateUser(t, session, "watcher")
	story := &models.Story{CreatorID: author.ID, Title: "Going away"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	sub := &models.Subscription{UserID: watcher.ID, TargetType: "story", TargetID: story.ID}
	if err := session.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if err := session.DeleteStory(ctx, story.ID); err != nil {
		t.Fatalf("delete story: %v", err)
	}

	remaining, err := session.ListSubscriptions(ctx, Query{})
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("subscriptions = %v, want none after target delete", remaining)
	}
}
