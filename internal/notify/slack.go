package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Slack posts the notification to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a Slack webhook notifier.
func NewSlack(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook_url is required")
	}
	return &Slack{webhookURL: webhookURL, client: &http.Client{Timeout: DefaultTimeout}}, nil
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, msg Message) error {
	text := textBody(msg)
	if msg.SOAPPayload != "" {
		text += "\n```\n" + msg.SOAPPayload + "\n```"
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, &slack.WebhookMessage{Text: text}); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}
