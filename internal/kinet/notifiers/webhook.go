package notifiers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daniacca/mcreact/internal/kinet"
)

// webhookTimeout bounds one delivery attempt end to end.
const webhookTimeout = 5 * time.Second

// WebhookNotifier delivers fire events as JSON POSTs to a fixed endpoint.
// Deliveries run on the notification manager's worker, so a slow endpoint
// delays later events but never the reaction loop.
type WebhookNotifier struct {
	id        string
	endpoint  string
	authToken string
	client    *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given endpoint URL.
func NewWebhookNotifier(id, endpoint string) *WebhookNotifier {
	return &WebhookNotifier{
		id:       id,
		endpoint: endpoint,
		client:   &http.Client{Timeout: webhookTimeout},
	}
}

// SetBearerToken attaches an Authorization header to every delivery.
func (wn *WebhookNotifier) SetBearerToken(token string) {
	wn.authToken = token
}

// ID returns the notifier ID.
func (wn *WebhookNotifier) ID() string {
	return wn.id
}

// Type returns the notifier type.
func (wn *WebhookNotifier) Type() string {
	return "webhook"
}

// Notify POSTs one fire event to the endpoint. Any status outside 2xx
// counts as a failed delivery.
func (wn *WebhookNotifier) Notify(ctx context.Context, event kinet.FireEvent) error {
	body, err := event.JSON()
	if err != nil {
		return fmt.Errorf("encode event for %s: %w", wn.endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if wn.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+wn.authToken)
	}

	resp, err := wn.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to %s: %w", wn.endpoint, err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused across deliveries
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s answered %s", wn.endpoint, resp.Status)
	}
	return nil
}

// Close closes the notifier (no-op for webhook).
func (wn *WebhookNotifier) Close() error {
	return nil
}
