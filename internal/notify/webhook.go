// Package notify resolves per-tenant destinations and delivers lifecycle
// announcements to them. All delivery is best-effort: failures are logged
// and swallowed, never surfaced to the mutation that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/ratelimit"
)

// Sink delivers one message to one destination.
type Sink interface {
	Send(ctx context.Context, dest domain.Destination, msg Message) error
}

// webhookPayload is the body posted to a destination endpoint.
type webhookPayload struct {
	Content string `json:"content"`
}

// WebhookSink posts messages to destination webhook URLs. Deliveries are
// rate-limited per URL so one slow or chatty destination cannot starve the
// rest.
type WebhookSink struct {
	client  *http.Client
	limiter *ratelimit.KeyedLimiter
	logger  *slog.Logger
}

// NewWebhookSink creates a sink with the given per-request timeout.
func NewWebhookSink(timeout time.Duration, logger *slog.Logger) *WebhookSink {
	return &WebhookSink{
		client:  &http.Client{Timeout: timeout},
		limiter: ratelimit.New(1, 5),
		logger:  logger,
	}
}

// Send posts the message to the destination. The mention target, when set,
// is prefixed to the text.
func (s *WebhookSink) Send(ctx context.Context, dest domain.Destination, msg Message) error {
	content := msg.Text
	if msg.Mention != "" {
		content = msg.Mention + " " + msg.Text
	}

	if err := s.limiter.Wait(ctx, dest.WebhookURL); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var body bytes.Buffer
	if err := json.MarshalWrite(&body, webhookPayload{Content: content}); err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.WebhookURL, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
