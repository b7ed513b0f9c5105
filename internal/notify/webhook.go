package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aashamedix/booking-platform/pkg/logging"
)

// WebhookSender posts booking events to an external CRM webhook. Delivery
// is best-effort like every other channel.
type WebhookSender struct {
	url    string
	secret string
	client *http.Client
	logger *logging.Logger
}

// NewWebhookSender creates a webhook sender. Returns nil when no URL is
// configured, which disables the channel.
func NewWebhookSender(url string, timeout time.Duration, logger *logging.Logger) *WebhookSender {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// WithSigningSecret enables HMAC-SHA256 signing of the request body; the
// signature travels in X-Signature so the receiver can verify origin. Safe
// to call on a nil (disabled) sender.
func (s *WebhookSender) WithSigningSecret(secret string) *WebhookSender {
	if s == nil {
		return nil
	}
	s.secret = secret
	return s
}

// Send posts the payload as JSON. The idempotency key travels as a header
// so receiving workflows can deduplicate retried deliveries.
func (s *WebhookSender) Send(ctx context.Context, payload any, idempotencyKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
	if s.secret != "" {
		mac := hmac.New(sha256.New, []byte(s.secret))
		mac.Write(body)
		req.Header.Set("X-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug("webhook delivered", "status", resp.StatusCode)
	return nil
}
