package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NaveenPalisetti/meetingmcp/pkg/archive"
	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

func riskList(t *testing.T, res mcp.Result, key string) []map[string]any {
	t.Helper()
	risks, ok := res[key].([]map[string]any)
	if !ok {
		t.Fatalf("%s missing: %v", key, res)
	}
	return risks
}

func TestRiskBlockersReported(t *testing.T) {
	clearJiraEnv(t)
	tool := NewRiskTool(RiskConfig{})

	res, err := tool.Execute(t.Context(), mcp.Params{
		"summary": map[string]any{
			"summary_text": "All workstreams on track.",
			"blockers":     []any{"DB migration pending"},
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status() != mcp.StatusSuccess {
		t.Fatalf("status = %q", res.Status())
	}

	risks := riskList(t, res, "risks")
	if len(risks) != 1 {
		t.Fatalf("got %d risks, want 1: %v", len(risks), risks)
	}
	if risks[0]["description"] != "DB migration pending" {
		t.Errorf("description = %v", risks[0]["description"])
	}
	if risks[0]["severity"] != "high" {
		t.Errorf("severity = %v, want high", risks[0]["severity"])
	}
	if risks[0]["source"] != "summary" {
		t.Errorf("source = %v", risks[0]["source"])
	}
	id, _ := risks[0]["id"].(string)
	if !strings.HasPrefix(id, "risk_") {
		t.Errorf("id = %q", id)
	}

	if jira := riskList(t, res, "jira_risks"); len(jira) != 0 {
		t.Errorf("jira_risks = %v, want empty", jira)
	}
}

func TestRiskKeywordDetected(t *testing.T) {
	clearJiraEnv(t)
	tool := NewRiskTool(RiskConfig{})

	res, err := tool.Execute(t.Context(), mcp.Params{
		"summary": "The launch may be delayed by the vendor review.",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	risks := riskList(t, res, "risks")
	if len(risks) != 1 {
		t.Fatalf("got %d risks, want 1", len(risks))
	}
	if risks[0]["severity"] != "medium" {
		t.Errorf("severity = %v, want medium", risks[0]["severity"])
	}
}

func TestRiskNoneDetected(t *testing.T) {
	clearJiraEnv(t)
	tool := NewRiskTool(RiskConfig{})

	res, err := tool.Execute(t.Context(), mcp.Params{
		"summary": "Everything shipped on schedule.",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	risks := riskList(t, res, "risks")
	if len(risks) != 1 {
		t.Fatalf("got %d risks, want 1", len(risks))
	}
	if risks[0]["id"] != "none" || risks[0]["severity"] != "low" {
		t.Errorf("placeholder risk = %v", risks[0])
	}
}

func TestRiskSummaryFromArchive(t *testing.T) {
	clearJiraEnv(t)
	store := testArchive(t)
	ctx := t.Context()
	if err := store.Put(ctx, "meet-3", archive.KindSummary, "Risk of delay in procurement."); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tool := NewRiskTool(RiskConfig{Archive: store})
	res, err := tool.Execute(ctx, mcp.Params{"meeting_id": "meet-3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	risks := riskList(t, res, "risks")
	if len(risks) != 1 || risks[0]["severity"] != "medium" {
		t.Fatalf("risks = %v, want one medium keyword risk", risks)
	}
}

func TestRiskJiraQueriesMerged(t *testing.T) {
	clearJiraEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/search/jql" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req struct {
			JQL string `json:"jql"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding search: %v", err)
		}

		issues := []map[string]any{}
		// The same issue shows up as unassigned and overdue; entries
		// must merge instead of duplicating.
		if strings.Contains(req.JQL, "assignee is EMPTY") || strings.Contains(req.JQL, "duedate <= now()") {
			issues = append(issues, map[string]any{
				"id":  "10001",
				"key": "ENG-1",
				"fields": map[string]any{
					"summary":  "Fix flaky deploy pipeline",
					"priority": map[string]any{"name": "Highest"},
				},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"issues": issues})
	}))
	defer srv.Close()

	t.Setenv("JIRA_USER", "bot@example.com")
	t.Setenv("JIRA_TOKEN", "tok-123")
	tool := NewRiskTool(RiskConfig{Jira: config.JiraConfig{BaseURL: srv.URL, Project: "ENG"}})

	res, err := tool.Execute(t.Context(), mcp.Params{
		"summary": map[string]any{"summary_text": "Routine sync."},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	jiraRisks := riskList(t, res, "jira_risks")
	if len(jiraRisks) != 1 {
		t.Fatalf("got %d jira risks, want 1 merged entry: %v", len(jiraRisks), jiraRisks)
	}
	risk := jiraRisks[0]
	if risk["key"] != "ENG-1" {
		t.Errorf("key = %v", risk["key"])
	}
	if risk["type"] != "unassigned" {
		t.Errorf("type = %v", risk["type"])
	}
	if risk["severity"] != "high" {
		t.Errorf("severity = %v, want high", risk["severity"])
	}
	description, _ := risk["description"].(string)
	if !strings.Contains(description, "Also flagged as overdue.") {
		t.Errorf("description = %q", description)
	}

	// Combined list carries the summary placeholder plus the Jira entry.
	risks := riskList(t, res, "risks")
	if len(risks) != 2 {
		t.Fatalf("got %d combined risks, want 2: %v", len(risks), risks)
	}
	summaryRisks := riskList(t, res, "summary_risks")
	if len(summaryRisks) != len(risks) {
		t.Errorf("summary_risks = %d entries, want %d", len(summaryRisks), len(risks))
	}
}

func TestRiskIncludeJiraOverride(t *testing.T) {
	clearJiraEnv(t)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"issues": []map[string]any{}})
	}))
	defer srv.Close()

	t.Setenv("JIRA_USER", "bot@example.com")
	t.Setenv("JIRA_TOKEN", "tok-123")
	tool := NewRiskTool(RiskConfig{Jira: config.JiraConfig{BaseURL: srv.URL, Project: "ENG"}})

	_, err := tool.Execute(t.Context(), mcp.Params{
		"summary":      "Routine sync.",
		"include_jira": false,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 0 {
		t.Fatalf("jira queried %d times with include_jira=false", calls)
	}
}
