package tools

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NaveenPalisetti/meetingmcp/pkg/archive"
	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// jiraRiskQueries are the project-health probes the risk tool runs against
// Jira, in report order. Each hit on the same issue merges into one entry,
// keeping the highest severity seen.
var jiraRiskQueries = []struct {
	name string
	jql  string
}{
	{"unassigned", `project="%s" AND assignee is EMPTY AND statusCategory != Done`},
	{"overdue", `project="%s" AND duedate <= now() AND statusCategory != Done`},
	{"blocked", `project="%s" AND (flagged = Impediment OR status = Blocked) AND statusCategory != Done`},
	{"stale", `project="%s" AND updated <= "-7d" AND statusCategory != Done`},
	{"high_priority_open", `project="%s" AND priority in (Highest, High) AND statusCategory != Done`},
	{"missing_estimate", `project="%s" AND "Story Points" is EMPTY AND issuetype = Story AND statusCategory != Done`},
	{"recent_scope_addition", `project="%s" AND created >= "-24h"`},
}

var severityRank = map[string]int{"high": 3, "medium": 2, "low": 1}

// riskKeywords in the summary text trigger a generic medium-severity risk.
var riskKeywords = []string{"delay", "blocked", "risk", "concern"}

// RiskConfig carries the risk tool dependencies. Archive is optional and
// only used to recover a summary when the caller passes a meeting ID alone.
type RiskConfig struct {
	Jira    config.JiraConfig
	Secrets SecretSource
	Archive *archive.Store
	Logger  *slog.Logger
}

// RiskTool surfaces risks from meeting summaries and, when Jira is
// configured, from the state of the tracked project.
type RiskTool struct {
	cfg     config.JiraConfig
	secrets SecretSource
	archive *archive.Store
	http    *http.Client
	logger  *slog.Logger
}

func NewRiskTool(cfg RiskConfig) *RiskTool {
	return &RiskTool{
		cfg:     cfg.Jira,
		secrets: cfg.Secrets,
		archive: cfg.Archive,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  telemetry.Component(cfg.Logger, "tools.risk"),
	}
}

func (t *RiskTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      "risk",
		Kind:        mcp.KindRiskDetection,
		Name:        "Risk Detection Tool",
		Description: "Detect risks from the meeting summary and the Jira project state.",
		APIPath:     "/mcp/risk",
		Parameters:  map[string]string{"meeting_id": "str", "summary": "dict", "tasks": "list", "include_jira": "bool"},
	}
}

func (t *RiskTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	var text string
	var blockers []any
	switch v := params["summary"].(type) {
	case map[string]any:
		text = summaryText(v)
		blockers, _ = v["blockers"].([]any)
	case string:
		text = v
	}

	// A meeting ID alone is enough when the summary is already archived.
	if text == "" && len(blockers) == 0 && t.archive != nil {
		if id := cmp.Or(params.String("meeting_id"), params.String("meeting")); id != "" {
			if a, err := t.archive.Get(ctx, id, archive.KindSummary); err == nil {
				text = a.Content
			}
		}
	}

	risks := detectSummaryRisks(text, blockers)

	client := newJiraClient(ctx, t.cfg, t.secrets, t.http)
	project := cmp.Or(t.cfg.Project, os.Getenv("JIRA_PROJECT"))
	jiraActive := client.configured() && project != ""
	includeJira := params.Bool("include_jira", jiraActive)

	jiraRisks := make([]map[string]any, 0)
	if includeJira && jiraActive {
		jiraRisks = t.detectJiraRisks(ctx, client, project)
	}
	risks = append(risks, jiraRisks...)

	return mcp.Result{
		"status":        mcp.StatusSuccess,
		"risks":         risks,
		"summary_risks": risks,
		"jira_risks":    jiraRisks,
	}, nil
}

// detectSummaryRisks reports each explicit blocker as high severity and adds
// one generic entry when risk language appears in the summary text. With
// nothing to report it returns a single low-severity placeholder.
func detectSummaryRisks(text string, blockers []any) []map[string]any {
	risks := make([]map[string]any, 0, len(blockers)+1)
	for _, b := range blockers {
		risks = append(risks, map[string]any{
			"id":          "risk_" + randHex6(),
			"description": fmt.Sprint(b),
			"severity":    "high",
			"source":      "summary",
		})
	}

	low := strings.ToLower(text)
	for _, kw := range riskKeywords {
		if strings.Contains(low, kw) {
			risks = append(risks, map[string]any{
				"id":          "risk_" + randHex6(),
				"description": "Potential risk detected in meeting content.",
				"severity":    "medium",
				"source":      "summary",
			})
			break
		}
	}

	if len(risks) == 0 {
		risks = append(risks, map[string]any{
			"id":          "none",
			"description": "No immediate risks detected.",
			"severity":    "low",
			"source":      "analysis",
		})
	}
	return risks
}

type groupedRisk struct {
	entry map[string]any
	types map[string]struct{}
}

func (t *RiskTool) detectJiraRisks(ctx context.Context, client *jiraClient, project string) []map[string]any {
	grouped := make(map[string]*groupedRisk)
	var order []string

	for _, q := range jiraRiskQueries {
		issues, err := client.searchJQL(ctx, fmt.Sprintf(q.jql, project), 50)
		if err != nil {
			t.logger.Warn("jira risk query failed", "query", q.name, "err", err.Error())
			continue
		}
		for _, issue := range issues {
			if issue.Key == "" || issue.Fields == nil {
				full, err := client.getIssue(ctx, cmp.Or(issue.ID, issue.Key))
				if err != nil {
					continue
				}
				issue = *full
			}

			severity := "medium"
			switch q.name {
			case "overdue", "blocked", "high_priority_open":
				severity = "high"
			case "unassigned":
				switch priorityName(issue.Fields) {
				case "Highest", "High":
					severity = "high"
				}
			}

			if g, ok := grouped[issue.Key]; ok {
				if severityRank[severity] > severityRank[g.entry["severity"].(string)] {
					g.entry["severity"] = severity
				}
				if _, seen := g.types[q.name]; !seen {
					g.types[q.name] = struct{}{}
					g.entry["description"] = g.entry["description"].(string) +
						fmt.Sprintf(" | Also flagged as %s.", q.name)
				}
				continue
			}
			grouped[issue.Key] = &groupedRisk{
				entry: map[string]any{
					"type":        q.name,
					"key":         issue.Key,
					"summary":     issue.Fields["summary"],
					"severity":    severity,
					"source":      "jira",
					"description": fmt.Sprintf("Jira %s risk detected for %s.", q.name, issue.Key),
				},
				types: map[string]struct{}{q.name: {}},
			}
			order = append(order, issue.Key)
		}
	}

	risks := make([]map[string]any, 0, len(order))
	for _, key := range order {
		risks = append(risks, grouped[key].entry)
	}
	return risks
}

func priorityName(fields map[string]any) string {
	priority, _ := fields["priority"].(map[string]any)
	name, _ := priority["name"].(string)
	return name
}

func randHex6() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
