package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aashamedix/booking-platform/cmd/mainconfig"
	appconfig "github.com/aashamedix/booking-platform/internal/config"
	"github.com/aashamedix/booking-platform/internal/events"
	"github.com/aashamedix/booking-platform/internal/notify"
	"github.com/aashamedix/booking-platform/internal/observability/metrics"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform notification worker",
		"env", cfg.Env,
		"workers", cfg.NotifyWorkerCount,
	)

	if cfg.UseMemoryQueue {
		logger.Error("USE_MEMORY_QUEUE is set; the API process runs the pipeline inline and this worker has nothing to consume")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.NotifyQueueURL == "" {
		logger.Error("NOTIFY_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)

	publisher := notify.NewPublisher(queue, logger)
	if cfg.NotifyWebhookURL != "" {
		publisher = publisher.WithWebhookChannel()
	}

	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), publisher, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	inapp := notify.NewInAppStore(redisClient, 0, logger)

	opts := []notify.DispatcherOption{
		notify.WithRetryPolicy(cfg.NotifyMaxAttempts, cfg.NotifyBaseDelay),
		notify.WithMetrics(metrics.NewNotifyMetrics(prometheus.DefaultRegisterer)),
		notify.WithRecorder(notify.NewPostgresDeliveryLog(pool)),
	}
	if wh := notify.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyWebhookTimeout, logger).WithSigningSecret(cfg.NotifyWebhookSecret); wh != nil {
		opts = append(opts, notify.WithWebhook(wh))
	}

	dispatcher := notify.NewDispatcher(
		buildEmailSender(cfg, awsCfg, logger),
		buildSMSSender(cfg, logger),
		inapp,
		logger,
		opts...,
	)

	worker := notify.NewWorker(queue, dispatcher, logger)
	worker.RunPool(ctx, cfg.NotifyWorkerCount)

	logger.Info("notification worker stopped")
}

// buildEmailSender picks the configured transport, falling back to a stub
// so dev environments still log what would have been sent.
func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := newSendGrid(cfg, logger); s != nil {
			return s
		}
	case "ses":
		if s := newSES(cfg, awsCfg, logger); s != nil {
			return s
		}
	default:
		if s := newSendGrid(cfg, logger); s != nil {
			return s
		}
		if s := newSES(cfg, awsCfg, logger); s != nil {
			return s
		}
	}
	logger.Warn("no email provider configured, using stub sender")
	return notify.NewStubEmailSender(logger)
}

func newSendGrid(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if sender == nil {
		return nil
	}
	return sender
}

func newSES(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg.SESFromEmail == "" {
		return nil
	}
	sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
	}, logger)
	if sender == nil {
		return nil
	}
	return sender
}

func buildSMSSender(cfg *appconfig.Config, logger *logging.Logger) notify.SMSSender {
	if cfg.SMSProvider == "stub" {
		logger.Warn("SMS provider set to stub, messages will be logged only")
		return notify.NewStubSMSSender(logger)
	}
	gateway := notify.NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSAPIKey, 0, logger)
	if gateway == nil {
		logger.Warn("no SMS gateway configured, using stub sender")
		return notify.NewStubSMSSender(logger)
	}
	return notify.NewSimpleSMSSender(cfg.SMSFromNumber, gateway.Send, logger)
}
