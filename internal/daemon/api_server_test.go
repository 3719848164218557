package daemon

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/health"
	"vigil/internal/logging"
	"vigil/internal/store"
	"vigil/internal/testsupport"
)

func newTestServer(t *testing.T, mem *store.Memory, opts ...testsupport.ConfigOption) (*Daemon, *httptest.Server) {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithMemoryStore()}, opts...)...)
	d, err := New(cfg, mem, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(d.api.routes())
	t.Cleanup(srv.Close)
	return d, srv
}

func doRequest(t *testing.T, method, url, body string, header http.Header) (*http.Response, api.Envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var env api.Envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

func TestTriggerPreflightAndMethodGuard(t *testing.T) {
	_, srv := newTestServer(t, store.NewMemory())

	resp, _ := doRequest(t, http.MethodOptions, srv.URL+"/api/summary/run", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" ||
		resp.Header.Get("Access-Control-Allow-Methods") != "POST, OPTIONS" ||
		resp.Header.Get("Access-Control-Allow-Headers") != "Content-Type, Authorization" {
		t.Fatalf("unexpected CORS headers: %v", resp.Header)
	}

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/slo/run", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed || env.Error != "Method not allowed" {
		t.Fatalf("expected 405 Method not allowed, got %d %+v", resp.StatusCode, env)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("405 responses must carry CORS headers")
	}
}

func TestTriggerRunsAndPersists(t *testing.T) {
	mem := store.NewMemory()
	_, srv := newTestServer(t, mem)

	for i := 0; i < 3; i++ {
		resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/events", `{"step":"generateInsightPDF","status":"success","durationMs":120}`, nil)
		if resp.StatusCode != http.StatusCreated || !env.OK {
			t.Fatalf("record event: %d %+v", resp.StatusCode, env)
		}
	}
	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/events", `{"step":"generateInsightPDF","status":"error","errorMessage":"render timeout"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record error event: %d %+v", resp.StatusCode, env)
	}

	resp, env = doRequest(t, http.MethodPost, srv.URL+"/api/summary/run", "", nil)
	if resp.StatusCode != http.StatusOK || !env.OK {
		t.Fatalf("summary run: %d %+v", resp.StatusCode, env)
	}
	var summary health.WindowSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Total != 4 || summary.Error != 1 || summary.SuccessRate != "75.0" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	resp, env = doRequest(t, http.MethodGet, srv.URL+"/api/summary", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get summary: %d %+v", resp.StatusCode, env)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/slo", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before first check, got %d", resp.StatusCode)
	}

	resp, env = doRequest(t, http.MethodPost, srv.URL+"/api/slo/run", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slo run: %d %+v", resp.StatusCode, env)
	}
	var check health.SLOCheckResult
	if err := json.Unmarshal(env.Data, &check); err != nil {
		t.Fatalf("decode slo: %v", err)
	}
	// The summary run recorded itself, so five events are in the window.
	if check.SLOMet || check.Total != 5 {
		t.Fatalf("unexpected slo check %+v", check)
	}

	resp, env = doRequest(t, http.MethodGet, srv.URL+"/api/events?days=1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list events: %d %+v", resp.StatusCode, env)
	}
	var list api.EventListResponse
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(list.Events) != 6 {
		t.Fatalf("expected 6 events including both job runs, got %d", len(list.Events))
	}
}

func TestTriggerFailureReturns500(t *testing.T) {
	mem := store.NewMemory()
	mem.FailList = errors.New("store offline")
	_, srv := newTestServer(t, mem)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/slo/run", "", nil)
	if resp.StatusCode != http.StatusInternalServerError || env.OK || !strings.Contains(env.Error, "store offline") {
		t.Fatalf("expected 500 with error, got %d %+v", resp.StatusCode, env)
	}
}

func TestRecordEventValidation(t *testing.T) {
	_, srv := newTestServer(t, store.NewMemory())

	cases := []string{
		`{"step":"x","status":"pending"}`,
		`{"step":"","status":"success"}`,
		`{"step":"x","status":"success","durationMs":-1}`,
		`not json`,
	}
	for _, body := range cases {
		resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/events", body, nil)
		if resp.StatusCode != http.StatusBadRequest || env.OK {
			t.Fatalf("body %s: expected 400, got %d %+v", body, resp.StatusCode, env)
		}
	}

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/events?since=2025-02-01&until=2025-01-01", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", resp.StatusCode)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, srv := newTestServer(t, store.NewMemory(), testsupport.WithAPIToken("s3cret"))

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/status", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error != "unauthorized" {
		t.Fatalf("expected 401, got %d %+v", resp.StatusCode, env)
	}
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/status", "", http.Header{"Authorization": {"Bearer wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodOptions, srv.URL+"/api/summary/run", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight must bypass auth, got %d", resp.StatusCode)
	}
	resp, env = doRequest(t, http.MethodGet, srv.URL+"/api/status", "", http.Header{"Authorization": {"Bearer s3cret"}})
	if resp.StatusCode != http.StatusOK || !env.OK {
		t.Fatalf("expected 200 with token, got %d %+v", resp.StatusCode, env)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestStatusReportsDriverAndChecks(t *testing.T) {
	_, srv := newTestServer(t, store.NewMemory())
	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.StoreDriver != config.DriverMemory || status.AlertingEnabled || status.Running {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks")
	}
}
