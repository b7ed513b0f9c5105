package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aashamedix/booking-platform/pkg/logging"
)

const gatewayUserAgent = "aashamedix-notify/0.1"

// SMSGateway posts transactional SMS to an HTTP provider endpoint. The
// provider API is assumed to accept a JSON body with from/to/text fields
// and bearer-token auth, which covers the common Indian gateways.
type SMSGateway struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSMSGateway creates a gateway client. Returns nil when the endpoint or
// key is missing.
func NewSMSGateway(endpoint, apiKey string, timeout time.Duration, logger *logging.Logger) *SMSGateway {
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMSGateway{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts one message. Matches the SimpleSMSSender sendFunc signature.
func (g *SMSGateway) Send(ctx context.Context, to, from, body, idempotencyKey string) error {
	payload, err := json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		Text string `json:"text"`
	}{From: from, To: to, Text: body})
	if err != nil {
		return fmt.Errorf("notify: marshal sms body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("User-Agent", gatewayUserAgent)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	g.logger.Debug("sms accepted by gateway", "to", to, "status", resp.StatusCode)
	return nil
}
