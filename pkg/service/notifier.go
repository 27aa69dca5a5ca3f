package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Notifier delivers outbound notifications. Delivery is fire-and-forget
// from the engines' perspective: a failed send is logged, never surfaced,
// and never rolls back a data mutation.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, template string, data map[string]interface{}) error
}

// Notification templates understood by the mail gateway
const (
	TemplateEvaluationCreated = "evaluation_created"
	TemplateDisputeFiled      = "dispute_filed"
	TemplateDisputeResolved   = "dispute_resolved"
)

// WebhookNotifier posts notification requests to an HTTP mail gateway
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &WebhookNotifier{client: client, url: url}
}

func (n *WebhookNotifier) Notify(ctx context.Context, recipients []string, subject, template string, data map[string]interface{}) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"recipients": recipients,
			"subject":    subject,
			"template":   template,
			"data":       data,
		}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification gateway returned %s", resp.Status())
	}
	return nil
}

// NoopNotifier discards notifications; used in tests and deployments
// without a mail gateway
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, recipients []string, subject, template string, data map[string]interface{}) error {
	return nil
}

// dispatch sends a notification in the background and logs any failure
func dispatch(logger *slog.Logger, notifier Notifier, recipients []string, subject, template string, data map[string]interface{}) {
	if len(recipients) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, recipients, subject, template, data); err != nil {
			logger.Warn("notification delivery failed",
				"template", template,
				"recipients", len(recipients),
				"error", err)
		}
	}()
}
