package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the coffee-bot data to local
// agents: profile lookup, partner resolution, and a profiles resource.
// Tools are read-only; matching through MCP never messages anyone.
func NewMCPServer(deps AdminDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"coffeebot",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("coffeebot — conversation-partner matching for English learners."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Fetch one learner profile by Telegram user id."),
			mcp.WithNumber("user_id", mcp.Description("Telegram user id"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("find_partner",
			mcp.WithDescription("Resolve the best conversation partner for a user. Read-only; no message is sent."),
			mcp.WithNumber("user_id", mcp.Description("Telegram user id"), mcp.Required()),
		),
		mcpFindPartner(deps),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List stored learner profiles."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of profiles (default 20)")),
		),
		mcpListProfiles(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"coffee://profiles",
			"Learner Profiles",
			mcp.WithResourceDescription("All stored learner profiles as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	return s
}

func mcpGetProfile(deps AdminDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireInt("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		p, err := deps.Store.GetProfile(int64(userID))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}

		b, err := json.Marshal(toProfileJSON(p))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFindPartner(deps AdminDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireInt("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		outcome, err := deps.Matcher.RequestMatch(int64(userID))
		if err != nil {
			return mcpError(fmt.Sprintf("matching failed: %v", err)), nil
		}

		result := map[string]any{"outcome": outcome.Kind.String()}
		if outcome.Match != nil {
			result["match"] = toProfileJSON(*outcome.Match)
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListProfiles(deps AdminDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		profiles, err := deps.Store.ListAllProfiles()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list profiles: %v", err)), nil
		}
		if len(profiles) > limit {
			profiles = profiles[:limit]
		}

		out := make([]profileJSON, len(profiles))
		for i, p := range profiles {
			out[i] = toProfileJSON(p)
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profiles: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProfiles(deps AdminDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		profiles, err := deps.Store.ListAllProfiles()
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}

		out := make([]profileJSON, len(profiles))
		for i, p := range profiles {
			out[i] = toProfileJSON(p)
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
