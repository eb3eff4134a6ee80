package tools

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/notify"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// NotificationTool fans the meeting digest out to every configured sink.
type NotificationTool struct {
	broadcaster *notify.Broadcaster
	audit       *audit.Logger
	logger      *slog.Logger
}

func NewNotificationTool(b *notify.Broadcaster, auditLog *audit.Logger, logger *slog.Logger) *NotificationTool {
	return &NotificationTool{
		broadcaster: b,
		audit:       auditLog,
		logger:      telemetry.Component(logger, "tools.notification"),
	}
}

func (t *NotificationTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      "notification",
		Kind:        mcp.KindNotification,
		Name:        "Notification Tool",
		Description: "Send the meeting summary, risks, and task count to notification channels.",
		APIPath:     "/mcp/notify",
		Parameters:  map[string]string{"meeting_id": "str", "summary": "dict", "tasks": "list", "risks": "list"},
	}
}

func (t *NotificationTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	if t.broadcaster == nil || t.broadcaster.Len() == 0 {
		return mcp.Result{"status": mcp.StatusSkipped, "message": "no notification sinks configured"}, nil
	}

	n := notify.Notification{
		MeetingID: cmp.Or(params.String("meeting_id"), "ui_session"),
		Summary:   summaryText(params["summary"]),
		NumTasks:  listLen(params["tasks"]),
		Risks:     riskDescriptions(params["risks"]),
		Timestamp: time.Now().UTC(),
	}

	delivered, failed := t.broadcaster.Broadcast(ctx, n)
	t.logger.Info("notification dispatched",
		"meeting_id", n.MeetingID, "delivered", len(delivered), "failed", len(failed))

	if t.audit != nil {
		if err := t.audit.Log(ctx, audit.EventNotifySend, "", "", "notification", map[string]any{
			"meeting_id": n.MeetingID,
			"delivered":  delivered,
			"failed":     failed,
			"payload":    n.Payload(),
		}); err != nil {
			t.logger.Warn("notification audit write failed", "err", err.Error())
		}
	}

	channels := delivered
	if channels == nil {
		channels = []string{}
	}
	return mcp.Result{
		"status":   mcp.StatusSuccess,
		"notified": len(delivered) > 0,
		"channels": channels,
	}, nil
}

// riskDescriptions flattens a risk list to display strings, preferring each
// entry's description field.
func riskDescriptions(v any) []string {
	switch risks := v.(type) {
	case []string:
		out := make([]string, len(risks))
		copy(out, risks)
		return out
	case []any:
		out := make([]string, 0, len(risks))
		for _, r := range risks {
			switch risk := r.(type) {
			case string:
				out = append(out, risk)
			case map[string]any:
				if desc, ok := risk["description"].(string); ok && desc != "" {
					out = append(out, desc)
				} else {
					out = append(out, fmt.Sprint(risk))
				}
			default:
				out = append(out, fmt.Sprint(risk))
			}
		}
		return out
	case []map[string]any:
		out := make([]string, 0, len(risks))
		for _, risk := range risks {
			if desc, ok := risk["description"].(string); ok && desc != "" {
				out = append(out, desc)
			} else {
				out = append(out, fmt.Sprint(risk))
			}
		}
		return out
	}
	return nil
}
