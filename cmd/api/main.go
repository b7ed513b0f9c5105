package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aashamedix/booking-platform/internal/api/router"
	"github.com/aashamedix/booking-platform/internal/booking"
	appconfig "github.com/aashamedix/booking-platform/internal/config"
	"github.com/aashamedix/booking-platform/internal/events"
	"github.com/aashamedix/booking-platform/internal/http/handlers"
	"github.com/aashamedix/booking-platform/internal/notify"
	"github.com/aashamedix/booking-platform/internal/observability/metrics"
	"github.com/aashamedix/booking-platform/internal/staffqueue"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	pool := connectPostgresPool(rootCtx, cfg.DatabaseURL, logger)
	store, enqueuer, outboxSource := setupStorage(pool, logger)
	manager := booking.NewManager(store, enqueuer, nil, logger)

	redisClient := connectRedis(cfg)
	inapp := notify.NewInAppStore(redisClient, 0, logger)

	metricsHandler, bookingMetrics, notifyMetrics := setupMetrics()

	view := staffqueue.New(store, booking.Filter{}, cfg.StaffQueuePollInterval, logger)
	view.Start(rootCtx)
	defer view.Stop()

	// In memory-queue dev mode the whole notification pipeline runs inside
	// the API process instead of the separate worker binary.
	if cfg.UseMemoryQueue {
		startInlineNotify(rootCtx, cfg, outboxSource, inapp, pool, notifyMetrics, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Bookings:           handlers.NewBookingsHandler(manager, store, logger),
		Staff:              handlers.NewStaffHandler(manager, view, bookingMetrics, logger),
		Notifications:      handlers.NewNotificationsHandler(inapp, logger),
		StaffAuthSecret:    cfg.StaffJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if pool != nil {
		pool.Close()
	}
	_ = redisClient.Close()
	logger.Info("server stopped")
}

// connectPostgresPool returns nil when no database is configured so dev
// setups can fall back to the in-memory store.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupStorage(pool *pgxpool.Pool, logger *logging.Logger) (booking.Store, booking.NotificationEnqueuer, events.OutboxSource) {
	if pool != nil {
		outbox := events.NewOutboxStore(pool)
		return booking.NewPostgresStore(pool), outbox, outbox
	}
	logger.Warn("DATABASE_URL not set; using in-memory store, data will not survive restarts")
	outbox := events.NewMemoryOutbox()
	return booking.NewMemoryStore(), outbox, outbox
}

func connectRedis(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics, *metrics.NotifyMetrics) {
	reg := prometheus.NewRegistry()
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewBookingMetrics(reg), metrics.NewNotifyMetrics(reg)
}

// startInlineNotify wires outbox -> publisher -> memory queue -> worker in
// process. Senders are stubs unless real providers are configured; dev mode
// still exercises the full dispatch path including the in-app channel.
func startInlineNotify(ctx context.Context, cfg *appconfig.Config, source events.OutboxSource, inapp *notify.InAppStore, pool *pgxpool.Pool, nm *metrics.NotifyMetrics, logger *logging.Logger) {
	queue := notify.NewMemoryQueue(64)

	publisher := notify.NewPublisher(queue, logger)
	if cfg.NotifyWebhookURL != "" {
		publisher = publisher.WithWebhookChannel()
	}

	opts := []notify.DispatcherOption{
		notify.WithRetryPolicy(cfg.NotifyMaxAttempts, cfg.NotifyBaseDelay),
		notify.WithMetrics(nm),
	}
	if pool != nil {
		opts = append(opts, notify.WithRecorder(notify.NewPostgresDeliveryLog(pool)))
	}
	if wh := notify.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyWebhookTimeout, logger).WithSigningSecret(cfg.NotifyWebhookSecret); wh != nil {
		opts = append(opts, notify.WithWebhook(wh))
	}

	dispatcher := notify.NewDispatcher(
		notify.NewStubEmailSender(logger),
		notify.NewStubSMSSender(logger),
		inapp,
		logger,
		opts...,
	)

	deliverer := events.NewDeliverer(source, publisher, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	worker := notify.NewWorker(queue, dispatcher, logger)
	go worker.RunPool(ctx, cfg.NotifyWorkerCount)

	logger.Info("inline notification pipeline started", "workers", cfg.NotifyWorkerCount)
}
