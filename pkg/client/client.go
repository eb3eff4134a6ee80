// Package client is a typed HTTP client for the meetingmcp gateway. The
// orchestrate and chat commands use it; external agents can too.
package client

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

const defaultBaseURL = "http://127.0.0.1:18790"

// Outcome mirrors the orchestration envelope. Results values are tool
// result objects, except on client-side failure where the single "error"
// entry holds a string.
type Outcome struct {
	Intent  string         `json:"intent"`
	Results map[string]any `json:"results"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a client. Empty arguments fall back to MCP_SERVER_URL and
// MCP_API_KEY; the request timeout comes from MCP_TIMEOUT (seconds,
// default 30).
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = cmp.Or(os.Getenv("MCP_SERVER_URL"), defaultBaseURL)
	}
	if apiKey == "" {
		apiKey = os.Getenv("MCP_API_KEY")
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("MCP_TIMEOUT"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshaling request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("client: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("client: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding response: %w", err)
	}
	return nil
}

// Health reports whether the gateway answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) CreateSession(ctx context.Context, agentID string) (string, error) {
	payload := map[string]string{}
	if agentID != "" {
		payload["agent_id"] = agentID
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/session/create", payload, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(sessionID)+"/end", nil, nil)
}

// Orchestrate never returns an error: transport failures come back as an
// error-intent outcome so callers handle one shape.
func (c *Client) Orchestrate(ctx context.Context, prompt string, params mcp.Params, sessionID string) *Outcome {
	payload := struct {
		Prompt    string     `json:"prompt"`
		Params    mcp.Params `json:"params,omitempty"`
		SessionID string     `json:"session_id,omitempty"`
	}{Prompt: prompt, Params: params, SessionID: sessionID}

	var out Outcome
	if err := c.do(ctx, http.MethodPost, "/mcp/orchestrate", payload, &out); err != nil {
		return &Outcome{Intent: "error", Results: map[string]any{"error": err.Error()}}
	}
	return &out
}

func (c *Client) Tools(ctx context.Context) ([]mcp.Summary, error) {
	var out []mcp.Summary
	if err := c.do(ctx, http.MethodGet, "/mcp/tools", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Preprocess(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/transcript", params)
}

func (c *Client) Summarize(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/summarize", params)
}

func (c *Client) Jira(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/jira", params)
}

func (c *Client) Risk(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/risk", params)
}

func (c *Client) Calendar(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/calendar", params)
}

func (c *Client) Notify(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return c.callTool(ctx, "/mcp/notify", params)
}

func (c *Client) callTool(ctx context.Context, path string, params mcp.Params) (mcp.Result, error) {
	if params == nil {
		params = mcp.Params{}
	}
	var out mcp.Result
	if err := c.do(ctx, http.MethodPost, path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
