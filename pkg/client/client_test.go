package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MCP_SERVER_URL", "")
	t.Setenv("MCP_API_KEY", "")
	t.Setenv("MCP_TIMEOUT", "")
}

func TestNewDefaults(t *testing.T) {
	clearClientEnv(t)

	c := New("", "")
	if c.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, defaultBaseURL)
	}
	if c.apiKey != "" {
		t.Errorf("apiKey = %q, want empty", c.apiKey)
	}

	t.Setenv("MCP_SERVER_URL", "http://example.test:9999/")
	t.Setenv("MCP_API_KEY", "env-key")
	c = New("", "")
	if c.baseURL != "http://example.test:9999" {
		t.Errorf("baseURL = %q, want env value without trailing slash", c.baseURL)
	}
	if c.apiKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", c.apiKey)
	}

	c = New("http://explicit:1/", "explicit-key")
	if c.baseURL != "http://explicit:1" || c.apiKey != "explicit-key" {
		t.Errorf("explicit args lost: baseURL = %q apiKey = %q", c.baseURL, c.apiKey)
	}
}

func TestTimeoutFromEnv(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("MCP_TIMEOUT", "5")

	c := New("", "")
	if got := c.httpClient.Timeout.Seconds(); got != 5 {
		t.Errorf("timeout = %vs, want 5s", got)
	}

	t.Setenv("MCP_TIMEOUT", "not-a-number")
	c = New("", "")
	if got := c.httpClient.Timeout.Seconds(); got != 30 {
		t.Errorf("timeout = %vs, want 30s fallback", got)
	}
}

func TestCreateSessionSendsAuth(t *testing.T) {
	clearClientEnv(t)

	var gotAuth, gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"session_id": "s-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-9")
	id, err := c.CreateSession(t.Context(), "tester")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id != "s-1" {
		t.Errorf("session id = %q, want s-1", id)
	}
	if gotAuth != "Bearer tok-9" {
		t.Errorf("Authorization = %q, want Bearer tok-9", gotAuth)
	}
	if gotPath != "/session/create" {
		t.Errorf("path = %q, want /session/create", gotPath)
	}
	if gotBody["agent_id"] != "tester" {
		t.Errorf("agent_id = %q, want tester", gotBody["agent_id"])
	}
}

func TestEndSession(t *testing.T) {
	clearClientEnv(t)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]bool{"ended": true})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if err := c.EndSession(t.Context(), "sess-42"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if gotPath != "/session/sess-42/end" {
		t.Errorf("path = %q, want /session/sess-42/end", gotPath)
	}
}

func TestOrchestrateForwardsPayload(t *testing.T) {
	clearClientEnv(t)

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"intent":  "summarize",
			"results": map[string]any{"summarization": map[string]any{"status": "success"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	out := c.Orchestrate(t.Context(), "summarize this", mcp.Params{"transcript": "hello"}, "sess-1")

	if out.Intent != "summarize" {
		t.Errorf("intent = %q, want summarize", out.Intent)
	}
	if _, ok := out.Results["summarization"]; !ok {
		t.Errorf("results = %v, want summarization entry", out.Results)
	}
	if gotBody["prompt"] != "summarize this" {
		t.Errorf("prompt = %v, want summarize this", gotBody["prompt"])
	}
	if gotBody["session_id"] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", gotBody["session_id"])
	}
	params, _ := gotBody["params"].(map[string]any)
	if params["transcript"] != "hello" {
		t.Errorf("params = %v, want transcript forwarded", gotBody["params"])
	}
}

func TestOrchestrateErrorOutcome(t *testing.T) {
	clearClientEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	out := c.Orchestrate(t.Context(), "hello", nil, "")

	if out.Intent != "error" {
		t.Fatalf("intent = %q, want error", out.Intent)
	}
	msg, _ := out.Results["error"].(string)
	if msg == "" {
		t.Fatalf("results = %v, want an error string", out.Results)
	}
}

func TestToolMethodsHitTheirRoutes(t *testing.T) {
	clearClientEnv(t)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	calls := []struct {
		name string
		call func(context.Context, mcp.Params) (mcp.Result, error)
		path string
	}{
		{"preprocess", c.Preprocess, "/mcp/transcript"},
		{"summarize", c.Summarize, "/mcp/summarize"},
		{"jira", c.Jira, "/mcp/jira"},
		{"risk", c.Risk, "/mcp/risk"},
		{"calendar", c.Calendar, "/mcp/calendar"},
		{"notify", c.Notify, "/mcp/notify"},
	}
	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.call(t.Context(), nil)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if res.Status() != mcp.StatusSuccess {
				t.Errorf("status = %q, want success", res.Status())
			}
			if gotPath != tc.path {
				t.Errorf("path = %q, want %q", gotPath, tc.path)
			}
		})
	}
}

func TestToolsListing(t *testing.T) {
	clearClientEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp/tools" {
			t.Errorf("path = %q, want /mcp/tools", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]mcp.Summary{{ToolID: "jira", Name: "Jira Tool"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	tools, err := c.Tools(t.Context())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(tools) != 1 || tools[0].ToolID != "jira" {
		t.Errorf("tools = %v, want the jira summary", tools)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	clearClientEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong")
	if err := c.Health(t.Context()); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}
