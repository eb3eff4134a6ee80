package notify

import (
	"context"
	"fmt"
	"os"

	slackapi "github.com/slack-go/slack"
)

// SlackSink posts digests to a Slack incoming webhook.
type SlackSink struct {
	webhookURL string
}

func NewSlackSink(webhookURL string) (*SlackSink, error) {
	if webhookURL == "" {
		webhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	}
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url not set (set SLACK_WEBHOOK_URL)")
	}
	return &SlackSink{webhookURL: webhookURL}, nil
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, n Notification) error {
	return slackapi.PostWebhookContext(ctx, s.webhookURL, &slackapi.WebhookMessage{
		Text: n.Render(),
	})
}
