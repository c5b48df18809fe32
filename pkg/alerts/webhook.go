package alerts

import (
	"context"
	"time"
)

// WebhookNotifier posts admin events to a generic HTTP endpoint. With a
// secret configured, receivers can verify the X-Signature-256 header.
type WebhookNotifier struct {
	endpoint endpoint
}

// NewWebhookNotifier creates a webhook notifier. An empty secret disables
// signing.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{endpoint: newEndpoint("webhook", url, secret)}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, event Event) error {
	return w.endpoint.post(ctx, webhookEnvelope{
		Event:     event.Type,
		Timestamp: eventTime(event).Format(time.RFC3339),
		Summary:   event.Summary(),
		Data:      event,
	})
}

type webhookEnvelope struct {
	Event     EventType `json:"event"`
	Timestamp string    `json:"timestamp"`
	Summary   string    `json:"summary"`
	Data      Event     `json:"data"`
}
