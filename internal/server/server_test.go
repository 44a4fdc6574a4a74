package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pulseline/internal/app"
	"pulseline/internal/domain"
	"pulseline/internal/testutil"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a := app.Wire(testutil.OpenDB(t), app.Options{Now: clock.Now})
	handler, err := New(Config{
		App:      a,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: testSecret, AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func as(actor string) map[string]string {
	return map[string]string{"X-Actor-Id": actor}
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return v
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/notifications", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(body))
	}
	apiErr := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, body)
	if apiErr.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %+v", apiErr.Error)
	}
}

func TestBearerToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/notifications/unread-count", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("count status %d: %s", res.StatusCode, string(body))
	}

	bad, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte("other"))
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/notifications/unread-count", nil, map[string]string{
		"Authorization": "Bearer " + bad,
		"X-Actor-Id":    "alice",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d: %s", res.StatusCode, string(body))
	}
}

func TestInitiativeProgressOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v1/initiatives", map[string]any{
		"org_id": "org", "project_id": "p", "title": "Checkout",
	}, as("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create initiative %d: %s", res.StatusCode, string(body))
	}
	in := decode[InitiativeResponse](t, body)

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v1/work-items", map[string]any{
		"org_id": "org", "project_id": "p", "title": "Pay", "initiative_id": in.ID,
	}, as("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create work item %d: %s", res.StatusCode, string(body))
	}
	w := decode[domain.WorkItem](t, body)

	res, body = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/work-items/"+w.ID, map[string]any{"status": "DONE"}, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update work item %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/initiatives/"+in.ID, nil, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get initiative %d: %s", res.StatusCode, string(body))
	}
	got := decode[InitiativeResponse](t, body)
	if got.WorkItemsCount != 1 || got.Progress != 100 {
		t.Fatalf("expected 1 item at 100%%, got %d at %v", got.WorkItemsCount, got.Progress)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/work-items/"+w.ID+"/status-log", nil, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status log %d: %s", res.StatusCode, string(body))
	}
	if logs := decode[StatusLogResponse](t, body); len(logs.Items) != 2 {
		t.Fatalf("expected 2 status log entries, got %d", len(logs.Items))
	}

	res, body = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/work-items/"+w.ID, map[string]any{"initiative_id": nil}, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unlink work item %d: %s", res.StatusCode, string(body))
	}
	_, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/initiatives/"+in.ID, nil, as("alice"))
	got = decode[InitiativeResponse](t, body)
	if got.WorkItemsCount != 0 || got.Progress != 0 {
		t.Fatalf("expected empty initiative, got %d at %v", got.WorkItemsCount, got.Progress)
	}
}

func TestGoalProgressIsRounded(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{
		"org_id": "org", "project_id": "p", "title": "Grow",
	}, as("alice"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create goal %d: %s", res.StatusCode, string(body))
	}
	g := decode[GoalResponse](t, body)
	for _, p := range []float64{0.1, 0.2, 0.2} {
		res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals/"+g.ID+"/sub-goals", map[string]any{
			"title": "KR", "progress": p,
		}, as("alice"))
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create sub-goal %d: %s", res.StatusCode, string(body))
		}
	}
	_, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals/"+g.ID, nil, as("alice"))
	got := decode[GoalResponse](t, body)
	if got.Progress != 0.17 {
		t.Fatalf("expected rounded progress 0.17, got %v", got.Progress)
	}
	if len(got.SubGoals) != 3 {
		t.Fatalf("expected 3 sub-goals, got %d", len(got.SubGoals))
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals/"+g.ID+"/sub-goals", map[string]any{
		"title": "KR", "progress": 1.5,
	}, as("alice"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for progress out of range, got %d: %s", res.StatusCode, string(body))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/goals/"+g.ID, nil, as("alice"))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete goal %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals/"+g.ID, nil, as("alice"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestCommentMentionsNotifyEachUser(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v1/work-items", map[string]any{
		"org_id": "org", "project_id": "p", "reference": "WI-7", "title": "Pay",
	}, as("carol"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create work item %d: %s", res.StatusCode, string(body))
	}
	w := decode[domain.WorkItem](t, body)

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v1/comments", map[string]any{
		"parent_kind": "work-item",
		"parent_id":   w.ID,
		"content":     "@alice @bob please look",
		"mentions":    []string{"alice", "bob"},
	}, as("carol"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create comment %d: %s", res.StatusCode, string(body))
	}
	comment := decode[domain.Comment](t, body)

	unread := func(user string) int {
		t.Helper()
		res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications/unread-count", nil, as(user))
		if res.StatusCode != http.StatusOK {
			t.Fatalf("unread count %d: %s", res.StatusCode, string(body))
		}
		return decode[CountResponse](t, body).Count
	}
	if unread("alice") != 1 || unread("bob") != 1 {
		t.Fatalf("expected one unread notification each")
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications", nil, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list %d: %s", res.StatusCode, string(body))
	}
	list := decode[NotificationList](t, body)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list.Items))
	}
	n := list.Items[0]
	if n.EntityType != string(domain.EntityWorkItemComment) || n.EntityID != comment.ID || n.CreatedBy != "carol" {
		t.Fatalf("unexpected notification %+v", n)
	}
	wantPath := "/projects/p/work-items/" + w.ID + "?comment=" + comment.ID
	if n.Path != wantPath || n.Display != "WI-7: Pay" {
		t.Fatalf("unexpected target %q %q", n.Display, n.Path)
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v1/notifications/read", map[string]any{"ids": []string{n.ID}}, as("alice"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("mark read %d: %s", res.StatusCode, string(body))
	}
	if unread("alice") != 0 || unread("bob") != 1 {
		t.Fatalf("expected alice 0 and bob 1 unread")
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/notifications/"+n.ID, nil, as("bob"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("bob must not delete alice's notification, got %d", res.StatusCode)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/comments/"+comment.ID, nil, as("carol"))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete comment %d", res.StatusCode)
	}
	_, body = doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications", nil, as("bob"))
	if list := decode[NotificationList](t, body); len(list.Items) != 0 {
		t.Fatalf("expected stale notification to be removed, got %d", len(list.Items))
	}
	if unread("bob") != 0 {
		t.Fatalf("expected healed notification to be gone from unread count")
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/work-items", map[string]any{
		"org_id": "org", "project_id": "p", "title": "Pay", "status": "shipped",
	}, as("alice"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(body))
	}
	apiErr := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, body)
	if apiErr.Error.Code != "bad_request" || apiErr.Error.Details["field"] != "status" {
		t.Fatalf("unexpected error body %+v", apiErr.Error)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/work-items/missing/status-stats", nil, as("alice"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}
