// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

type testAPI struct {
	server *httptest.Server
	store  *database.Store
	bus    notifications.Bus
	token  string
	user   *models.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Driver:       "sqlite3",
		Connection:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	cfg.Notifications.Driver = "channel"

	store, err := database.Open(context.Background(), &cfg.Database)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus, err := notifications.NewBus(&cfg.Notifications)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	publisher := notifications.NewPublisher(bus)
	t.Cleanup(func() { publisher.Close() })

	api := &testAPI{store: store, bus: bus}
	err = store.WithSession(context.Background(), func(session *database.Session) error {
		api.user = &models.User{
			OpenID:      "https://login.example.org/tester",
			Email:       "tester@example.org",
			FullName:    "Tester",
			IsActive:    true,
			EnableLogin: true,
		}
		if err := session.CreateUser(context.Background(), api.user); err != nil {
			return err
		}
		token := &models.AccessToken{
			AccessToken: "test-token",
			UserID:      api.user.ID,
			ExpiresIn:   3600,
		}
		return session.CreateAccessToken(context.Background(), token)
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	api.token = "test-token"

	router := NewRouter(cfg, store, publisher)
	api.server = httptest.NewServer(router.Handler())
	t.Cleanup(api.server.Close)
	return api
}

// do issues a request against the test server; body may be empty.
func (a *testAPI) do(t *testing.T, method, path, body, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, out
}

func TestValidationRejectionNamesField(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/v1/stories", `{"description":"no title"}`, api.token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var fail struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	if err := json.Unmarshal(body, &fail); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	if fail.Message == "" || fail.Field != "title" {
		t.Fatalf("error body = %s, want message and field naming the title", body)
	}

	// Too-short names fail the length rule, and the error names the field
	// as the client sent it.
	resp, body = api.do(t, "POST", "/v1/projects", `{"name":"x"}`, api.token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("project status = %d, want 400", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &fail); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	if fail.Field != "name" {
		t.Fatalf("error body = %s, want field %q", body, "name")
	}
}

func TestAnonymousMutationRejected(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, "POST", "/v1/stories", `{"title":"anon"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	api := newTestAPI(t)

	err := api.store.WithSession(context.Background(), func(session *database.Session) error {
		stale := models.NewUTCTime(time.Now().UTC().Add(-48 * time.Hour))
		token := &models.AccessToken{
			AccessToken: "stale-token",
			UserID:      api.user.ID,
			ExpiresIn:   3600,
		}
		token.CreatedAt = stale
		token.UpdatedAt = stale
		return session.CreateAccessToken(context.Background(), token)
	})
	if err != nil {
		t.Fatalf("seed stale token: %v", err)
	}

	resp, body := api.do(t, "GET", "/v1/users/self", "", "stale-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "access token expired") {
		t.Fatalf("body = %s, want access token expired", body)
	}
}

func TestStoryLifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/v1/stories",
		`{"title":"Scheduler starves small flavors","description":"seen on rocky"}`, api.token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var story models.Story
	if err := json.Unmarshal(body, &story); err != nil {
		t.Fatalf("decode story: %v", err)
	}
	if story.ID == 0 || story.CreatorID != api.user.ID {
		t.Fatalf("story = %+v", story)
	}

	// Public stories read anonymously.
	resp, _ = api.do(t, "GET", "/v1/stories/"+itoa(story.ID), "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous get status = %d, want 200", resp.StatusCode)
	}

	// Creation records a timeline event attributed to the caller.
	resp, body = api.do(t, "GET", "/v1/stories/"+itoa(story.ID)+"/events", "", api.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d: %s", resp.StatusCode, body)
	}
	var events []models.TimelineEvent
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != models.EventStoryCreated {
		t.Fatalf("events = %+v, want one story_created", events)
	}
	if events[0].AuthorID != api.user.ID {
		t.Fatalf("event author = %d, want %d", events[0].AuthorID, api.user.ID)
	}

	resp, _ = api.do(t, "DELETE", "/v1/stories/"+itoa(story.ID), "", api.token)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = api.do(t, "GET", "/v1/stories/"+itoa(story.ID), "", api.token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestPrivateStoryHiddenFromAnonymous(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/v1/stories",
		`{"title":"Embargoed","private":true}`, api.token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var story models.Story
	if err := json.Unmarshal(body, &story); err != nil {
		t.Fatalf("decode story: %v", err)
	}

	// Invisible reads as absent, not forbidden.
	resp, _ = api.do(t, "GET", "/v1/stories/"+itoa(story.ID), "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("anonymous get status = %d, want 404", resp.StatusCode)
	}
	resp, _ = api.do(t, "GET", "/v1/stories/"+itoa(story.ID), "", api.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("creator get status = %d, want 200", resp.StatusCode)
	}
}

func TestServerOwnedFieldsScrubbed(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/v1/stories",
		`{"id":9999,"created_at":"2001-01-01T00:00:00Z","title":"scrubbed"}`, api.token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var story models.Story
	if err := json.Unmarshal(body, &story); err != nil {
		t.Fatalf("decode story: %v", err)
	}
	if story.ID == 9999 {
		t.Fatal("client-supplied id survived the scrub hook")
	}
	if story.CreatedAt.Year() == 2001 {
		t.Fatal("client-supplied created_at survived the scrub hook")
	}
}

func TestMutationPublishesEnvelope(t *testing.T) {
	api := newTestAPI(t)

	subscriber, err := api.bus.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := subscriber.Subscribe(ctx, api.bus.Topic())
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	resp, body := api.do(t, "POST", "/v1/stories", `{"title":"notify me"}`, api.token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var story models.Story
	if err := json.Unmarshal(body, &story); err != nil {
		t.Fatalf("decode story: %v", err)
	}

	envelope := waitForEnvelope(t, ctx, messages)
	if envelope.Method != "POST" || envelope.Resource != "story" || envelope.Status != 201 {
		t.Fatalf("envelope = %+v", envelope)
	}
	if envelope.AuthorID != api.user.ID {
		t.Fatalf("author_id = %d, want %d", envelope.AuthorID, api.user.ID)
	}
	var after models.Story
	if err := json.Unmarshal(envelope.ResourceAfter, &after); err != nil {
		t.Fatalf("decode after image: %v", err)
	}
	if after.ID != story.ID {
		t.Fatalf("after image id = %d, want %d", after.ID, story.ID)
	}
}

func TestReadsDoNotPublish(t *testing.T) {
	api := newTestAPI(t)

	subscriber, err := api.bus.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := subscriber.Subscribe(context.Background(), api.bus.Topic())
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	resp, _ := api.do(t, "GET", "/v1/stories", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}

	select {
	case msg := <-messages:
		envelope, _ := notifications.Unmarshal(msg)
		t.Fatalf("read produced an envelope: %+v", envelope)
	case <-ctx.Done():
	}
}

func TestSystemInfo(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "GET", "/v1/systeminfo", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version == "" {
		t.Fatalf("systeminfo = %s, want a version", body)
	}
}

func TestOpenIDLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "GET",
		"/v1/openid/authorize?openid=https%3A%2F%2Flogin.example.org%2Fnew&email=new%40example.org&full_name=New+User&state=csrf",
		"", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authorize status = %d: %s", resp.StatusCode, body)
	}
	var grant struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		t.Fatalf("decode grant: %v", err)
	}
	if grant.Code == "" || grant.State != "csrf" {
		t.Fatalf("grant = %+v", grant)
	}

	form := url.Values{"grant_type": {"authorization_code"}, "code": {grant.Code}}
	req, err := http.NewRequest("POST", api.server.URL+"/v1/openid/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenResp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer tokenResp.Body.Close()
	tokenBody, err := io.ReadAll(tokenResp.Body)
	if err != nil {
		t.Fatalf("read token response: %v", err)
	}
	if tokenResp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d: %s", tokenResp.StatusCode, tokenBody)
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	if err := json.Unmarshal(tokenBody, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "Bearer" {
		t.Fatalf("token pair = %s", tokenBody)
	}

	// The minted token authenticates as the autocreated user.
	resp, body = api.do(t, "GET", "/v1/users/self", "", pair.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self status = %d: %s", resp.StatusCode, body)
	}
	var self models.User
	if err := json.Unmarshal(body, &self); err != nil {
		t.Fatalf("decode self: %v", err)
	}
	if self.OpenID != "https://login.example.org/new" || self.Email != "new@example.org" {
		t.Fatalf("self = %+v", self)
	}
	if self.LastLogin == nil {
		t.Fatal("last_login not stamped at authorization")
	}
}

func waitForEnvelope(t *testing.T, ctx context.Context, messages <-chan *message.Message) *notifications.Envelope {
	t.Helper()
	select {
	case msg := <-messages:
		envelope, err := notifications.Unmarshal(msg)
		if err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		msg.Ack()
		return envelope
	case <-ctx.Done():
		t.Fatal("no envelope before timeout")
		return nil
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
