package tools

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// jiraClient is a minimal Jira Cloud REST v3 client shared by the jira and
// risk tools. Credentials are resolved per call, never cached.
type jiraClient struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

// newJiraClient resolves the Jira endpoint and credentials for one call:
// config first, then the original environment variables, then the
// credentials store.
func newJiraClient(ctx context.Context, cfg config.JiraConfig, secrets SecretSource, httpClient *http.Client) *jiraClient {
	return &jiraClient{
		baseURL: cmp.Or(cfg.BaseURL, os.Getenv("JIRA_URL")),
		email:   resolveSecret(ctx, secrets, "", cmp.Or(cfg.EmailEnv, "JIRA_USER"), "jira_email"),
		token:   resolveSecret(ctx, secrets, "", cmp.Or(cfg.TokenEnv, "JIRA_TOKEN"), "jira_token"),
		http:    httpClient,
	}
}

func (c *jiraClient) configured() bool {
	return c.baseURL != "" && c.email != "" && c.token != ""
}

func (c *jiraClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("jira: marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("jira: creating request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jira: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("jira: API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jira: decoding response: %w", err)
	}
	return nil
}

// adfDoc wraps plain text in the single-paragraph Atlassian Document Format
// body the v3 issue endpoint requires.
func adfDoc(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": text}},
		}},
	}
}

func (c *jiraClient) createIssue(ctx context.Context, project, issueType, summary, description string) (string, error) {
	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": project},
			"summary":     summary,
			"description": adfDoc(description),
			"issuetype":   map[string]string{"name": issueType},
		},
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/issue", payload, &created); err != nil {
		return "", err
	}
	return created.Key, nil
}

type jiraIssue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

func (c *jiraClient) searchJQL(ctx context.Context, jql string, maxResults int) ([]jiraIssue, error) {
	payload := map[string]any{
		"jql":          jql,
		"maxResults":   maxResults,
		"fields":       []string{"summary", "assignee", "duedate", "comment", "priority"},
		"fieldsByKeys": false,
	}
	var out struct {
		Issues []jiraIssue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/search/jql", payload, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// getIssue backfills key and fields when a JQL page returns minimal
// issue objects.
func (c *jiraClient) getIssue(ctx context.Context, idOrKey string) (*jiraIssue, error) {
	var issue jiraIssue
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/issue/"+idOrKey, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// JiraTool turns extracted action items into Jira Cloud issues.
type JiraTool struct {
	cfg     config.JiraConfig
	secrets SecretSource
	http    *http.Client
	logger  *slog.Logger
}

func NewJiraTool(cfg config.JiraConfig, secrets SecretSource, logger *slog.Logger) *JiraTool {
	return &JiraTool{
		cfg:     cfg,
		secrets: secrets,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  telemetry.Component(logger, "tools.jira"),
	}
}

func (t *JiraTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:       "jira",
		Kind:         mcp.KindJira,
		Name:         "Jira Tool",
		Description:  "Create Jira issues from action items or a single task.",
		APIPath:      "/mcp/jira",
		AuthRequired: true,
		Parameters:   map[string]string{"action_items": "list", "task": "str", "owner": "str", "deadline": "str"},
	}
}

func (t *JiraTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	var items []map[string]any
	for _, key := range []string{"action_items", "action_items_list", "items", "tasks"} {
		if lifted := liftActionItems(params[key]); len(lifted) > 0 {
			items = lifted
			break
		}
	}
	if items == nil {
		if single := singleTaskItem(params); single != nil {
			items = []map[string]any{single}
		}
	}

	client := newJiraClient(ctx, t.cfg, t.secrets, t.http)
	if !client.configured() {
		created := make([]map[string]any, 0, len(items))
		for _, item := range items {
			created = append(created, map[string]any{
				"title":          itemTitle(item),
				"owner":          item["owner"],
				"due":            item["due"],
				"jira_issue_key": nil,
				"status":         "skipped",
				"reason":         "jira credentials missing",
			})
		}
		t.logger.Info("jira not configured, skipping issue creation", "items", len(items))
		return mcp.Result{
			"status":  mcp.StatusSuccess,
			"results": map[string]any{"status": "skipped", "created_tasks": created},
		}, nil
	}

	project := cmp.Or(t.cfg.Project, os.Getenv("JIRA_PROJECT"), "PROJ")
	issueType := cmp.Or(t.cfg.IssueType, "Task")

	created := make([]map[string]any, 0, len(items))
	for _, item := range items {
		title := itemTitle(item)
		owner, _ := item["owner"].(string)
		due, _ := item["due"].(string)

		entry := map[string]any{
			"title": title,
			"owner": item["owner"],
			"due":   item["due"],
		}

		description := fmt.Sprintf("Created from meeting. Owner: %s\nDue: %s",
			cmp.Or(owner, "Unassigned"), cmp.Or(due, "Unspecified"))
		key, err := client.createIssue(ctx, project, issueType, strings.ReplaceAll(title, "\n", " "), description)
		if err != nil {
			t.logger.Warn("jira issue creation failed", "title", title, "err", err.Error())
			entry["jira_issue_key"] = nil
			entry["status"] = "error"
			entry["reason"] = err.Error()
		} else {
			t.logger.Info("jira issue created", "key", key, "title", title)
			entry["jira_issue_key"] = key
			entry["status"] = "created"
		}
		created = append(created, entry)
	}

	return mcp.Result{
		"status":  mcp.StatusSuccess,
		"results": map[string]any{"status": "success", "created_tasks": created},
	}, nil
}

// liftActionItems accepts an action-item list in whatever shape the caller's
// decoder produced, normalizing each entry; bare strings become items with
// only a summary.
func liftActionItems(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			out = append(out, normalizeActionItem(it))
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			switch item := it.(type) {
			case map[string]any:
				out = append(out, normalizeActionItem(item))
			default:
				out = append(out, map[string]any{"summary": fmt.Sprint(item), "owner": nil, "due": nil})
			}
		}
		return out
	}
	return nil
}

// normalizeActionItem maps the historical field aliases onto summary, owner,
// and due, preserving unrelated keys as-is.
func normalizeActionItem(item map[string]any) map[string]any {
	aliased := map[string]struct{}{
		"summary": {}, "title": {}, "task": {}, "text": {},
		"owner": {}, "assignee": {}, "assigned_to": {}, "user": {},
		"due": {}, "due_date": {}, "deadline": {}, "duedate": {},
	}
	normalized := make(map[string]any, len(item)+3)
	for k, v := range item {
		if _, ok := aliased[k]; !ok {
			normalized[k] = v
		}
	}
	normalized["summary"] = firstValue(item, "summary", "title", "task", "text")
	normalized["owner"] = firstValue(item, "owner", "assignee", "assigned_to", "user")
	normalized["due"] = firstValue(item, "due", "due_date", "deadline", "duedate")
	return normalized
}

// singleTaskItem builds a one-element action item from bare task fields, the
// shape intent-routed prompts and simple API callers use.
func singleTaskItem(params mcp.Params) map[string]any {
	present := false
	for _, key := range []string{"task", "owner", "deadline", "due", "due_date"} {
		if _, ok := params[key]; ok {
			present = true
			break
		}
	}
	if !present {
		return nil
	}
	return normalizeActionItem(map[string]any{
		"summary": firstValue(params, "task", "title", "summary"),
		"owner":   firstValue(params, "owner", "assignee", "user"),
		"due":     firstValue(params, "deadline", "due", "due_date"),
	})
}

// firstValue returns the first present, non-empty value under keys, or nil.
func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func itemTitle(item map[string]any) string {
	if s, ok := item["summary"].(string); ok && s != "" {
		return s
	}
	if s, ok := item["title"].(string); ok && s != "" {
		return s
	}
	return fmt.Sprint(item)
}
