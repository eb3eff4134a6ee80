package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/notify"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// NewDigestJob builds the recurring digest job: orchestrate the configured
// prompt, broadcast the outcome to the notification sinks, and record an
// audit entry. The job itself never fails; delivery problems are logged.
func NewDigestJob(cfg config.DigestConfig, orch *orchestrator.Orchestrator, broadcaster *notify.Broadcaster, auditLog *audit.Logger, logger *slog.Logger) Job {
	logger = telemetry.Component(logger, "digest")

	return Job{
		Name:     "digest",
		Schedule: cfg.Schedule,
		Func: func(ctx context.Context) error {
			outcome := orch.Orchestrate(ctx, cfg.Prompt, nil, "")

			var delivered, failed []string
			if broadcaster != nil && broadcaster.Len() > 0 {
				delivered, failed = broadcaster.Broadcast(ctx, digestNotification(outcome))
			}
			logger.Info("digest run complete",
				slog.String("intent", outcome.Intent),
				slog.Int("delivered", len(delivered)),
				slog.Int("failed", len(failed)),
			)

			if auditLog != nil {
				err := auditLog.Log(ctx, audit.EventDigestRun, "", orchestrator.DefaultAgentID, "scheduler", map[string]any{
					"intent":    outcome.Intent,
					"delivered": delivered,
					"failed":    failed,
				})
				if err != nil {
					logger.Warn("digest audit write failed", slog.String("error", err.Error()))
				}
			}
			return nil
		},
	}
}

// digestNotification flattens an orchestration outcome into the payload the
// sinks understand.
func digestNotification(outcome *orchestrator.Outcome) notify.Notification {
	n := notify.Notification{
		MeetingID: "digest",
		Timestamp: time.Now().UTC(),
	}
	if outcome == nil || outcome.Results == nil {
		return n
	}

	if res, ok := outcome.Results.Get("summarization"); ok {
		if summary, ok := res["summary"].(map[string]any); ok {
			if text, ok := summary["summary"].(string); ok {
				n.Summary = text
			}
			n.NumTasks = lenOf(summary["action_items"])
		}
	}
	if res, ok := outcome.Results.Get("risk"); ok {
		n.Risks = riskLines(res["risks"])
	}
	return n
}

func lenOf(v any) int {
	switch items := v.(type) {
	case []map[string]any:
		return len(items)
	case []any:
		return len(items)
	}
	return 0
}

func riskLines(v any) []string {
	var out []string
	appendDesc := func(m map[string]any) {
		if desc, ok := m["description"].(string); ok && desc != "" {
			out = append(out, desc)
		}
	}
	switch items := v.(type) {
	case []map[string]any:
		for _, m := range items {
			appendDesc(m)
		}
	case []any:
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				appendDesc(m)
			}
		}
	}
	return out
}
