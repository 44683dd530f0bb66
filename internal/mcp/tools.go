package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	ReadOnly    bool
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func sessionIDSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"session_id"},
	}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Sessions
		{
			Name:        "connect",
			Description: "Authenticate against a Salesforce org and make the new session active",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instance_url": map[string]any{
						"type":        "string",
						"description": "Org instance URL, e.g. https://acme.my.salesforce.com",
					},
					"grant_type": map[string]any{
						"type":        "string",
						"enum":        []string{"password", "token"},
						"description": "password (default) or token",
					},
					"username":      map[string]any{"type": "string", "description": "Username for the password grant"},
					"password":      map[string]any{"type": "string", "description": "Password for the password grant"},
					"client_id":     map[string]any{"type": "string", "description": "Connected app client id"},
					"client_secret": map[string]any{"type": "string", "description": "Connected app client secret"},
					"access_token":  map[string]any{"type": "string", "description": "Access token for the token grant"},
				},
				"required": []string{"instance_url"},
			},
		},
		{
			Name:        "list_sessions",
			Description: "List known sessions and the active session id",
			InputSchema: emptySchema(),
			ReadOnly:    true,
		},
		{
			Name:        "switch_session",
			Description: "Make a session active and reload its transcript from the backend",
			InputSchema: sessionIDSchema("Session to activate"),
		},
		{
			Name:        "remove_session",
			Description: "Forget a session locally",
			InputSchema: sessionIDSchema("Session to remove"),
		},
		{
			Name:        "clear_sessions",
			Description: "Forget every session locally",
			InputSchema: emptySchema(),
		},

		// Chat
		{
			Name:        "get_transcript",
			Description: "Get the active session's transcript and latest data snapshot",
			InputSchema: emptySchema(),
			ReadOnly:    true,
		},
		{
			Name:        "send_message",
			Description: "Send a message in the active session and return the updated transcript",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "Message text",
					},
				},
				"required": []string{"message"},
			},
		},
		{
			Name:        "toggle_data_log",
			Description: "Show or hide the active session's retrieved data log",
			InputSchema: emptySchema(),
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
			Annotations: &sdkmcp.ToolAnnotations{ReadOnlyHint: def.ReadOnly},
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			out, err := handler.Handle(ctx, name, args)
			if err != nil {
				return errorResult(err), nil
			}
			return jsonResult(out)
		})
	}
}

func jsonResult(out any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	if apiErr == nil {
		apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
