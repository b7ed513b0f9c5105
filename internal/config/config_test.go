package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.NotifyMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.StaffQueuePollInterval)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Zero(t, cfg.RateLimitRPS)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "5")
	t.Setenv("NOTIFY_BASE_DELAY", "250ms")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("SMS_GATEWAY_URL", "https://sms.example.com/v1/messages")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "40")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://aashamedix.in, https://staff.aashamedix.in")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.NotifyMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.NotifyBaseDelay)
	assert.True(t, cfg.UseMemoryQueue)
	assert.Equal(t, "https://sms.example.com/v1/messages", cfg.SMSGatewayURL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://aashamedix.in", "https://staff.aashamedix.in"}, cfg.CORSAllowedOrigins)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("NOTIFY_BASE_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.NotifyMaxAttempts)
	assert.Equal(t, time.Second, cfg.NotifyBaseDelay)
}
