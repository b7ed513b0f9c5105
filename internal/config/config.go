package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Notification dispatch
	UseMemoryQueue         bool
	NotifyQueueURL         string
	NotifyWorkerCount      int
	NotifyMaxAttempts      int
	NotifyBaseDelay        time.Duration
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	NotifyWebhookURL       string
	NotifyWebhookSecret    string
	NotifyWebhookTimeout   time.Duration
	StaffQueuePollInterval time.Duration

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// SMS
	SMSProvider   string
	SMSFromNumber string
	SMSAPIKey     string
	SMSGatewayURL string

	StaffJWTSecret string

	// Patient endpoint rate limiting; zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		UseMemoryQueue:         getEnvAsBool("USE_MEMORY_QUEUE", false),
		NotifyQueueURL:         getEnv("NOTIFY_QUEUE_URL", ""),
		NotifyWorkerCount:      getEnvAsInt("NOTIFY_WORKER_COUNT", 2),
		NotifyMaxAttempts:      getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
		NotifyBaseDelay:        getEnvAsDuration("NOTIFY_BASE_DELAY", time.Second),
		OutboxPollInterval:     getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:        getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		NotifyWebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookSecret:    getEnv("NOTIFY_WEBHOOK_SECRET", ""),
		NotifyWebhookTimeout:   getEnvAsDuration("NOTIFY_WEBHOOK_TIMEOUT", 10*time.Second),
		StaffQueuePollInterval: getEnvAsDuration("STAFF_QUEUE_POLL_INTERVAL", 30*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Aasha Medix"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Aasha Medix"),

		SMSProvider:   strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "stub"))),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),

		StaffJWTSecret: getEnv("STAFF_JWT_SECRET", ""),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
