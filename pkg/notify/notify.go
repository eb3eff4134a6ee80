// Package notify fans meeting digests out to chat sinks. Each sink wraps one
// messaging platform behind the same two-method contract; the Broadcaster
// isolates per-sink failures so one dead channel never blocks the rest.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// Notification is one meeting digest delivered to every configured sink.
type Notification struct {
	MeetingID string
	Summary   string
	NumTasks  int
	Risks     []string
	Timestamp time.Time
}

// Render formats the digest as plain text suitable for any chat platform.
func (n Notification) Render() string {
	var b strings.Builder
	b.WriteString("Meeting digest")
	if n.MeetingID != "" {
		b.WriteString(": ")
		b.WriteString(n.MeetingID)
	}
	if n.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(n.Summary)
	}
	if n.NumTasks > 0 {
		fmt.Fprintf(&b, "\n\nAction items: %d", n.NumTasks)
	}
	if len(n.Risks) > 0 {
		b.WriteString("\n\nRisks:")
		for _, r := range n.Risks {
			b.WriteString("\n- ")
			b.WriteString(r)
		}
	}
	return b.String()
}

// Payload is the structured form of the digest, used for audit trails.
func (n Notification) Payload() map[string]any {
	return map[string]any{
		"meeting_id": n.MeetingID,
		"summary":    n.Summary,
		"num_tasks":  n.NumTasks,
		"risks":      n.Risks,
		"timestamp":  n.Timestamp.UTC().Format(time.RFC3339),
	}
}

// Sink is one notification destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// SecretSource supplies named secrets, usually the credentials store.
type SecretSource interface {
	Get(ctx context.Context, name string) (string, error)
}

// Broadcaster delivers notifications to a fixed set of sinks.
type Broadcaster struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		sinks:  sinks,
		logger: telemetry.Component(logger, "notify"),
	}
}

func (b *Broadcaster) Len() int { return len(b.sinks) }

func (b *Broadcaster) Names() []string {
	names := make([]string, 0, len(b.sinks))
	for _, s := range b.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Broadcast sends n to every sink and reports which delivered and which
// failed. Failures are logged and counted, never returned.
func (b *Broadcaster) Broadcast(ctx context.Context, n Notification) (delivered, failed []string) {
	for _, sink := range b.sinks {
		if err := sink.Send(ctx, n); err != nil {
			telemetry.Metrics.NotificationsSent.WithLabelValues(sink.Name(), "error").Inc()
			b.logger.Warn("notification delivery failed", "sink", sink.Name(), "err", err.Error())
			failed = append(failed, sink.Name())
			continue
		}
		telemetry.Metrics.NotificationsSent.WithLabelValues(sink.Name(), "success").Inc()
		b.logger.Info("notification delivered", "sink", sink.Name(), "meeting_id", n.MeetingID)
		delivered = append(delivered, sink.Name())
	}
	return delivered, failed
}

// BuildSinks constructs every enabled sink from the [notify] config table.
// Tokens resolve from inline config, then the sink's environment variables,
// then the secret source. A sink that fails to construct is skipped with a
// warning so one bad block never stops startup.
func BuildSinks(ctx context.Context, cfgs map[string]config.SinkConfig, secrets SecretSource, logger *slog.Logger) []Sink {
	log := telemetry.Component(logger, "notify")

	var sinks []Sink
	for _, name := range slices.Sorted(maps.Keys(cfgs)) {
		sc := cfgs[name]
		if !sc.Enabled {
			continue
		}
		sink, err := buildSink(ctx, name, sc, secrets)
		if err != nil {
			log.Warn("skipping notification sink", "sink", name, "err", err.Error())
			continue
		}
		sinks = append(sinks, sink)
	}
	return sinks
}

func buildSink(ctx context.Context, name string, sc config.SinkConfig, secrets SecretSource) (Sink, error) {
	switch name {
	case "slack":
		return NewSlackSink(resolve(ctx, secrets, sc.WebhookURL, sc.TokenEnv, "slack_webhook"))
	case "telegram":
		return NewTelegramSink(resolve(ctx, secrets, sc.Token, sc.TokenEnv, "telegram_token"), sc.Channel)
	case "discord":
		return NewDiscordSink(resolve(ctx, secrets, sc.Token, sc.TokenEnv, "discord_token"), sc.Channel)
	case "matrix":
		return NewMatrixSink(sc.Homeserver, sc.UserID, resolve(ctx, secrets, sc.Token, sc.TokenEnv, "matrix_token"), sc.Room)
	case "whatsapp":
		return NewWhatsAppSink("", sc.Recipient)
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}

func resolve(ctx context.Context, secrets SecretSource, explicit, envName, secretName string) string {
	if explicit != "" {
		return explicit
	}
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	if secrets != nil {
		if v, err := secrets.Get(ctx, secretName); err == nil && v != "" {
			return v
		}
	}
	return ""
}
