// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package subscription

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

func newTestSession(t *testing.T) *database.Session {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:       "sqlite3",
		Connection:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	store, err := database.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	session, err := store.NewSession(context.Background())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { session.Rollback() })
	return session
}

func mustCreateUser(t *testing.T, session *database.Session, openid string) *models.User {
	t.Helper()
	user := &models.User{
		OpenID:      openid,
		Email:       openid + "@example.org",
		FullName:    "Test " + openid,
		IsActive:    true,
		EnableLogin: true,
	}
	if err := session.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", openid, err)
	}
	return user
}

func mustSubscribe(t *testing.T, session *database.Session, userID int64, targetType string, targetID int64) {
	t.Helper()
	sub := &models.Subscription{UserID: userID, TargetType: targetType, TargetID: targetID}
	if err := session.CreateSubscription(context.Background(), sub); err != nil {
		t.Fatalf("subscribe user %d to %s %d: %v", userID, targetType, targetID, err)
	}
}

func eventsFor(t *testing.T, session *database.Session, subscriberID int64) []models.SubscriptionEvent {
	t.Helper()
	events, err := session.ListSubscriptionEvents(context.Background(),
		database.Query{}.Eq("subscriber_id", subscriberID))
	if err != nil {
		t.Fatalf("list events for %d: %v", subscriberID, err)
	}
	return events
}

func TestCommentFanOutEnriches(t *testing.T) {
	session := newTestSession(t)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	watcher := mustCreateUser(t, session, "watcher")
	indirect := mustCreateUser(t, session, "indirect")
	bystander := mustCreateUser(t, session, "bystander")

	project := &models.Project{Name: "openstack/nova", IsActive: true}
	if err := session.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	story := &models.Story{CreatorID: author.ID, Title: "Scheduler starves small flavors"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	task := &models.Task{CreatorID: author.ID, Title: "Bisect the filter", StoryID: story.ID, ProjectID: project.ID}
	if err := session.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	mustSubscribe(t, session, watcher.ID, models.TargetStory, story.ID)
	mustSubscribe(t, session, indirect.ID, models.TargetProject, project.ID)

	comment := &models.Comment{Content: "reproduced on master"}
	if _, err := session.CreateComment(ctx, story.ID, author.ID, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	after, err := json.Marshal(comment)
	if err != nil {
		t.Fatalf("marshal comment: %v", err)
	}
	storyID := story.ID
	envelope := &notifications.Envelope{
		AuthorID:      author.ID,
		Method:        "POST",
		Path:          fmt.Sprintf("/v1/stories/%d/comments", story.ID),
		Status:        201,
		Resource:      "story",
		ResourceID:    &storyID,
		SubResource:   "comment",
		ResourceAfter: after,
	}
	if err := NewHandler().Handle(ctx, session, envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// The story watcher and the project watcher both hear about it; the
	// project watcher is reached through story -> task -> project.
	for _, subscriber := range []*models.User{watcher, indirect} {
		events := eventsFor(t, session, subscriber.ID)
		if len(events) != 1 {
			t.Fatalf("subscriber %s got %d events, want 1", subscriber.OpenID, len(events))
		}
		event := events[0]
		if event.EventType != models.EventUserComment {
			t.Fatalf("event_type = %q, want %q", event.EventType, models.EventUserComment)
		}
		if event.AuthorID != author.ID {
			t.Fatalf("author_id = %d, want %d", event.AuthorID, author.ID)
		}
		var info struct {
			CommentID      int64  `json:"comment_id"`
			CommentContent string `json:"comment_content"`
			StoryID        int64  `json:"story_id"`
			StoryTitle     string `json:"story_title"`
		}
		if err := json.Unmarshal([]byte(event.EventInfo), &info); err != nil {
			t.Fatalf("decode event_info: %v", err)
		}
		if info.CommentID != comment.ID || info.CommentContent != "reproduced on master" {
			t.Fatalf("event_info = %s", event.EventInfo)
		}
		if info.StoryID != story.ID || info.StoryTitle != story.Title {
			t.Fatalf("event_info missing story context: %s", event.EventInfo)
		}
	}

	if events := eventsFor(t, session, bystander.ID); len(events) != 0 {
		t.Fatalf("bystander got %d events, want 0", len(events))
	}
}

func TestWorklistFanOutHonorsPreference(t *testing.T) {
	session := newTestSession(t)
	ctx := context.Background()

	owner := mustCreateUser(t, session, "owner")
	optedIn := mustCreateUser(t, session, "optedin")
	optedOut := mustCreateUser(t, session, "optedout")

	list := &models.Worklist{Title: "Triage", CreatorID: owner.ID}
	if err := session.CreateWorklist(ctx, list); err != nil {
		t.Fatalf("create worklist: %v", err)
	}
	mustSubscribe(t, session, optedIn.ID, models.TargetWorklist, list.ID)
	mustSubscribe(t, session, optedOut.ID, models.TargetWorklist, list.ID)
	if err := session.SetPreferences(ctx, optedIn.ID, map[string]any{
		models.PrefReceiveWorklistNotifications: "true",
	}); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	listID := list.ID
	envelope := &notifications.Envelope{
		AuthorID:   owner.ID,
		Method:     "PUT",
		Path:       fmt.Sprintf("/v1/worklists/%d", list.ID),
		Status:     200,
		Resource:   "worklist",
		ResourceID: &listID,
	}
	if err := NewHandler().Handle(ctx, session, envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if events := eventsFor(t, session, optedIn.ID); len(events) != 1 {
		t.Fatalf("opted-in subscriber got %d events, want 1", len(events))
	} else if events[0].EventType != "worklist updated" {
		t.Fatalf("event_type = %q, want %q", events[0].EventType, "worklist updated")
	}
	if events := eventsFor(t, session, optedOut.ID); len(events) != 0 {
		t.Fatalf("opted-out subscriber got %d events, want 0", len(events))
	}
}

func TestPrivateStoryFanOutFiltersSubscribers(t *testing.T) {
	session := newTestSession(t)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	outsider := mustCreateUser(t, session, "outsider")

	story := &models.Story{CreatorID: author.ID, Title: "Embargoed issue", Private: true}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	mustSubscribe(t, session, author.ID, models.TargetStory, story.ID)
	mustSubscribe(t, session, outsider.ID, models.TargetStory, story.ID)

	storyID := story.ID
	envelope := &notifications.Envelope{
		AuthorID:   author.ID,
		Method:     "PUT",
		Path:       fmt.Sprintf("/v1/stories/%d", story.ID),
		Status:     200,
		Resource:   "story",
		ResourceID: &storyID,
	}
	if err := NewHandler().Handle(ctx, session, envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if events := eventsFor(t, session, author.ID); len(events) != 1 {
		t.Fatalf("author got %d events, want 1", len(events))
	}
	if events := eventsFor(t, session, outsider.ID); len(events) != 0 {
		t.Fatalf("outsider can see a private story event: %d", len(events))
	}
}

func TestDeleteCleansTargetSubscriptions(t *testing.T) {
	session := newTestSession(t)
	ctx := context.Background()

	author := mustCreateUser(t, session, "author")
	watcher := mustCreateUser(t, session, "watcher")

	story := &models.Story{CreatorID: author.ID, Title: "Short lived"}
	if err := session.CreateStory(ctx, story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	mustSubscribe(t, session, watcher.ID, models.TargetStory, story.ID)
	if err := session.DeleteStory(ctx, story.ID); err != nil {
		t.Fatalf("delete story: %v", err)
	}

	storyID := story.ID
	envelope := &notifications.Envelope{
		AuthorID:   author.ID,
		Method:     "DELETE",
		Path:       fmt.Sprintf("/v1/stories/%d", story.ID),
		Status:     204,
		Resource:   "story",
		ResourceID: &storyID,
	}
	if err := NewHandler().Handle(ctx, session, envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// The watcher hears about the deletion, then the subscription goes.
	events := eventsFor(t, session, watcher.ID)
	if len(events) != 1 || !strings.HasPrefix(events[0].EventType, "story") {
		t.Fatalf("events = %+v, want one story deletion event", events)
	}
	subs, err := session.ListSubscriptions(ctx,
		database.Query{}.Eq("target_type", "story").Eq("target_id", story.ID))
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("%d subscriptions survive the delete, want 0", len(subs))
	}
}

func TestGroupMembershipEvent(t *testing.T) {
	session := newTestSession(t)
	ctx := context.Background()

	admin := mustCreateUser(t, session, "admin")
	watcher := mustCreateUser(t, session, "watcher")

	project := &models.Project{Name: "openstack/nova", IsActive: true}
	if err := session.CreateProject(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	group := &models.ProjectGroup{Name: "compute", Title: "Compute"}
	if err := session.CreateProjectGroup(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	mustSubscribe(t, session, watcher.ID, models.TargetProjectGroup, group.ID)

	groupID, projectID := group.ID, project.ID
	envelope := &notifications.Envelope{
		AuthorID:      admin.ID,
		Method:        "PUT",
		Path:          fmt.Sprintf("/v1/project_groups/%d/projects/%d", group.ID, project.ID),
		Status:        204,
		Resource:      "project_group",
		ResourceID:    &groupID,
		SubResource:   "project",
		SubResourceID: &projectID,
	}
	if err := NewHandler().Handle(ctx, session, envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	events := eventsFor(t, session, watcher.ID)
	if len(events) != 1 {
		t.Fatalf("watcher got %d events, want 1", len(events))
	}
	if events[0].EventType != "project added to project_group" {
		t.Fatalf("event_type = %q", events[0].EventType)
	}
	var info map[string]int64
	if err := json.Unmarshal([]byte(events[0].EventInfo), &info); err != nil {
		t.Fatalf("decode event_info: %v", err)
	}
	if info["project_group_id"] != group.ID || info["project_id"] != project.ID {
		t.Fatalf("event_info = %s", events[0].EventInfo)
	}
}
