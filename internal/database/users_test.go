// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

func TestPreferenceTypesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session, "prefs")

	in := map[string]any{
		"plugin_email_enable":       "true",
		"page_size":                 25,
		"display_events_tags_added": true,
		"timeline_density":          1.5,
	}
	if err := session.SetPreferences(ctx, user.ID, in); err != nil {
		t.Fatalf("set preferences: %v", err)
	}

	out, err := session.GetPreferences(ctx, user.ID)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if got := out["plugin_email_enable"]; got != "true" {
		t.Fatalf("string pref = %#v, want \"true\"", got)
	}
	if got := out["page_size"]; got != 25 {
		t.Fatalf("int pref = %#v, want 25", got)
	}
	if got := out["display_events_tags_added"]; got != true {
		t.Fatalf("bool pref = %#v, want true", got)
	}
	if got := out["timeline_density"]; got != 1.5 {
		t.Fatalf("float pref = %#v, want 1.5", got)
	}
}

func TestPreferenceMergeAndDelete(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session, "prefs")

	if err := session.SetPreferences(ctx, user.ID, map[string]any{
		"page_size": 25,
		"theme":     "dark",
	}); err != nil {
		t.Fatalf("seed preferences: %v", err)
	}

	// Updates merge key by key; nil removes.
	if err := session.SetPreferences(ctx, user.ID, map[string]any{
		"page_size": 50,
		"theme":     nil,
	}); err != nil {
		t.Fatalf("merge preferences: %v", err)
	}

	out, err := session.GetPreferences(ctx, user.ID)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if got := out["page_size"]; got != 50 {
		t.Fatalf("page_size = %#v, want 50", got)
	}
	if _, ok := out["theme"]; ok {
		t.Fatal("deleted preference still present")
	}

	value, err := session.GetPreference(ctx, user.ID, "theme")
	if err != nil {
		t.Fatalf("get single preference: %v", err)
	}
	if value != "" {
		t.Fatalf("unset preference = %q, want empty string", value)
	}
}

func TestPreferenceRejectsUnsupportedType(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session, "prefs")

	err := session.SetPreferences(ctx, user.ID, map[string]any{
		"bad": []string{"not", "scalar"},
	})
	if !errors.Is(err, ErrValueError) {
		t.Fatalf("set list preference = %v, want ErrValueError", err)
	}
}

func TestDuplicateOpenIDRejected(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	mustCreateUser(t, session, "same")

	dup := &models.User{OpenID: "same", FullName: "Other"}
	err := session.CreateUser(ctx, dup)
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("duplicate openid = %v, want ErrDuplicateEntry", err)
	}
}

func TestTeamMembership(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	alice := mustCreateUser(t, session, "alice")
	bob := mustCreateUser(t, session, "bob")

	team := &models.Team{Name: "nova-core"}
	if err := session.CreateTeam(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	for _, user := range []*models.User{alice, bob} {
		if err := session.AddTeamMember(ctx, team.ID, user.ID); err != nil {
			t.Fatalf("add member %d: %v", user.ID, err)
		}
	}

	ids, err := session.TeamMemberIDs(ctx, team.ID)
	if err != nil {
		t.Fatalf("member ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("member count = %d, want 2", len(ids))
	}

	if err := session.RemoveTeamMember(ctx, team.ID, alice.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	ids, err = session.TeamMemberIDs(ctx, team.ID)
	if err != nil {
		t.Fatalf("member ids after remove: %v", err)
	}
	if len(ids) != 1 || ids[0] != bob.ID {
		t.Fatalf("members = %v, want [%d]", ids, bob.ID)
	}
}

func TestUserPermissions(t *testing.T) {
	store := newTestStore(t)
	session := newTestSession(t, store)
	ctx := context.Background()
	user := mustCreateUser(t, session, "perms")

	perm := &models.Permission{Name: "Set own preferences", Codename: "set_own_preferences"}
	if err := session.CreatePermission(ctx, perm); err != nil {
		t.Fatalf("create permission: %v", err)
	}
	if err := session.GrantUserPermission(ctx, user.ID, perm.ID); err != nil {
		t.Fatalf("grant permission: %v", err)
	}

	codenames, err := session.UserPermissions(ctx, user.ID)
	if err != nil {
		t.Fatalf("user permissions: %v", err)
	}
	if len(codenames) != 1 || codenames[0] != "set_own_preferences" {
		t.Fatalf("permissions = %v, want [set_own_preferences]", codenames)
	}
}
