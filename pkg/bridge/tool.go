package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

// BridgedTool adapts one tool from an external MCP server to the host's
// tool contract, so orchestrations and per-tool API calls can reach it the
// same way they reach built-in tools.
type BridgedTool struct {
	serverName string
	toolName   string
	desc       string
	params     map[string]string
	session    func() (*mcpsdk.ClientSession, error)
}

func NewBridgedTool(serverName string, tool *mcpsdk.Tool, sessionFn func() (*mcpsdk.ClientSession, error)) *BridgedTool {
	return &BridgedTool{
		serverName: serverName,
		toolName:   tool.Name,
		desc:       tool.Description,
		params:     schemaParams(tool.InputSchema),
		session:    sessionFn,
	}
}

func (t *BridgedTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      ToolID(t.serverName, t.toolName),
		Kind:        mcp.KindOther,
		Name:        t.toolName,
		Description: fmt.Sprintf("[MCP:%s] %s", t.serverName, t.desc),
		Parameters:  t.params,
	}
}

func (t *BridgedTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	args := map[string]any(params)
	if args == nil {
		args = map[string]any{}
	}

	sess, err := t.session()
	if err != nil {
		return nil, fmt.Errorf("bridge tool %s: %w", t.toolName, err)
	}

	result, err := sess.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge tool %s: call failed: %w", t.toolName, err)
	}

	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	text := strings.Join(parts, "\n")
	if result.IsError {
		return mcp.ErrorResult(text), nil
	}
	return mcp.Result{"status": mcp.StatusSuccess, "content": text}, nil
}

// ToolID namespaces a bridged tool so it can never collide with a built-in
// tool id.
func ToolID(serverName, toolName string) string {
	return fmt.Sprintf("mcp_%s__%s", serverName, toolName)
}

// schemaParams flattens a JSON schema's top-level properties into the
// documentation map the host serves from its tool listing.
func schemaParams(schema any) map[string]string {
	params := map[string]string{}
	raw, err := json.Marshal(schema)
	if err != nil || len(raw) == 0 || string(raw) == "null" {
		return params
	}

	var parsed struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return params
	}
	for name, prop := range parsed.Properties {
		doc := prop.Type
		if doc == "" {
			doc = "any"
		}
		if prop.Description != "" {
			doc = doc + ": " + prop.Description
		}
		params[name] = doc
	}
	return params
}
