package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/thedevi-l/eng-coffee-bot/internal/dispatch"
)

// --- helpers ---

func newTestMCPDeps(store *mockStore, matcher *mockMatcher) AdminDeps {
	return AdminDeps{
		Store:       store,
		Matcher:     matcher,
		Broadcaster: &mockBroadcaster{},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_GetProfile(t *testing.T) {
	deps := newTestMCPDeps(newMockStore(testProfile(42)), &mockMatcher{})
	handler := mcpGetProfile(deps)

	req := makeCallToolRequest("get_profile", map[string]interface{}{
		"user_id": 42,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var p profileJSON
	if err := json.Unmarshal([]byte(toolText(t, result)), &p); err != nil {
		t.Fatalf("failed to parse profile JSON: %v", err)
	}
	if p.UserID != 42 {
		t.Fatalf("expected user_id 42, got %d", p.UserID)
	}
	if p.Level != "B2" {
		t.Fatalf("expected level B2, got %s", p.Level)
	}
}

func TestMCPTool_GetProfile_MissingArg(t *testing.T) {
	deps := newTestMCPDeps(newMockStore(), &mockMatcher{})
	handler := mcpGetProfile(deps)

	req := makeCallToolRequest("get_profile", map[string]interface{}{})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when user_id is missing")
	}
}

func TestMCPTool_GetProfile_NotFound(t *testing.T) {
	deps := newTestMCPDeps(newMockStore(), &mockMatcher{})
	handler := mcpGetProfile(deps)

	req := makeCallToolRequest("get_profile", map[string]interface{}{
		"user_id": 99,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown user")
	}
}

func TestMCPTool_FindPartner(t *testing.T) {
	partner := testProfile(2)
	matcher := &mockMatcher{outcome: dispatch.Outcome{Kind: dispatch.OutcomeFound, Match: &partner}}
	deps := newTestMCPDeps(newMockStore(testProfile(1), partner), matcher)
	handler := mcpFindPartner(deps)

	req := makeCallToolRequest("find_partner", map[string]interface{}{
		"user_id": 1,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var body struct {
		Outcome string       `json:"outcome"`
		Match   *profileJSON `json:"match"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if body.Outcome != "found" {
		t.Fatalf("expected outcome found, got %s", body.Outcome)
	}
	if body.Match == nil || body.Match.UserID != 2 {
		t.Fatalf("expected match for user 2, got %+v", body.Match)
	}
}

func TestMCPTool_FindPartner_NoProfile(t *testing.T) {
	matcher := &mockMatcher{outcome: dispatch.Outcome{Kind: dispatch.OutcomeNoProfile}}
	deps := newTestMCPDeps(newMockStore(), matcher)
	handler := mcpFindPartner(deps)

	req := makeCallToolRequest("find_partner", map[string]interface{}{
		"user_id": 99,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var body struct {
		Outcome string       `json:"outcome"`
		Match   *profileJSON `json:"match"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if body.Outcome != "no_profile" {
		t.Fatalf("expected outcome no_profile, got %s", body.Outcome)
	}
	if body.Match != nil {
		t.Fatalf("expected no match, got %+v", body.Match)
	}
}

func TestMCPTool_ListProfiles(t *testing.T) {
	deps := newTestMCPDeps(newMockStore(testProfile(1), testProfile(2), testProfile(3)), &mockMatcher{})
	handler := mcpListProfiles(deps)

	req := makeCallToolRequest("list_profiles", map[string]interface{}{
		"limit": 2,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var out []profileJSON
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("failed to parse profiles: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(out))
	}
}

func TestMCPResource_Profiles(t *testing.T) {
	deps := newTestMCPDeps(newMockStore(testProfile(1)), &mockMatcher{})
	handler := mcpResourceProfiles(deps)

	req := makeReadResourceRequest("coffee://profiles")

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "coffee://profiles" {
		t.Fatalf("unexpected URI: %s", tc.URI)
	}

	var out []profileJSON
	if err := json.Unmarshal([]byte(tc.Text), &out); err != nil {
		t.Fatalf("failed to parse profiles: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(out))
	}
}
