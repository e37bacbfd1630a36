package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thedevi-l/eng-coffee-bot/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func TestProfilesList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profiles": `[{"user_id":10,"username":"anna","name":"Anna","level":"B2","interests":"movies, hiking","goal":"fluency"}]`,
	})

	client := ts.client()
	resp, err := client.get("/profiles?limit=100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var profiles []struct {
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
		Level  string `json:"level"`
	}
	if err := decodeJSON(resp, &profiles); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[0].UserID != 10 {
		t.Errorf("user_id = %d, want 10", profiles[0].UserID)
	}
	if profiles[0].Level != "B2" {
		t.Errorf("level = %q, want B2", profiles[0].Level)
	}
}

func TestMatchCommand_Found(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /profiles/10/match": `{"outcome":"found","match":{"user_id":20,"name":"Boris","level":"B2","interests":"movies"}}`,
	})

	client := ts.client()
	resp, err := client.post("/profiles/10/match")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Outcome string `json:"outcome"`
		Match   *struct {
			UserID int64 `json:"user_id"`
		} `json:"match"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result.Outcome != "found" {
		t.Errorf("outcome = %q, want found", result.Outcome)
	}
	if result.Match == nil || result.Match.UserID != 20 {
		t.Errorf("match = %+v, want user 20", result.Match)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Method != "POST" {
		t.Errorf("method = %q, want POST", ts.requests[0].Method)
	}
}

func TestMatchCommand_RequiresUser(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"match"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error when --user is missing")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestBroadcastCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /broadcast": `{"run_id":"run-123"}`,
	})

	client := ts.client()
	resp, err := client.post("/broadcast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["run_id"] != "run-123" {
		t.Errorf("run_id = %q, want run-123", result["run_id"])
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get("/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok","profiles":0}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get("/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"auth_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get("/profiles")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.AdminPort = 4080
	cfg.Match.BroadcastInterval = "168h"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.admin_port" && k.Value == "4080" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.admin_port=4080 in ShowAll output")
	}
}
