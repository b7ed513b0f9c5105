package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/aashamedix/booking-platform/internal/config"
	"github.com/aashamedix/booking-platform/internal/booking"
	"github.com/aashamedix/booking-platform/internal/events"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

func TestSetupMetricsExposesTransitionCounter(t *testing.T) {
	handler, bookingMetrics, notifyMetrics := setupMetrics()
	if handler == nil || bookingMetrics == nil || notifyMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	bookingMetrics.ObserveTransition("approved", "applied")
	notifyMetrics.ObserveDelivery("email", "delivered")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "aashamedix_booking_transitions_total") {
		t.Fatalf("expected transition counter to be exported")
	}
	if !strings.Contains(rr.Body.String(), "aashamedix_notify_deliveries_total") {
		t.Fatalf("expected delivery counter to be exported")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestSetupStorageMemoryFallback(t *testing.T) {
	logger := logging.New("error")
	store, enqueuer, source := setupStorage(nil, logger)
	if store == nil || enqueuer == nil || source == nil {
		t.Fatalf("expected in-memory storage wiring")
	}
	if _, ok := store.(*booking.MemoryStore); !ok {
		t.Fatalf("expected memory store without a pool, got %T", store)
	}
	if _, ok := source.(*events.MemoryOutbox); !ok {
		t.Fatalf("expected memory outbox without a pool, got %T", source)
	}
}

func TestStartInlineNotifyStopsWithContext(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{
		UseMemoryQueue:     true,
		NotifyWorkerCount:  1,
		NotifyMaxAttempts:  1,
		NotifyBaseDelay:    time.Millisecond,
		OutboxPollInterval: 10 * time.Millisecond,
		OutboxBatchSize:    5,
	}
	ctx, cancel := context.WithCancel(context.Background())

	startInlineNotify(ctx, cfg, events.NewMemoryOutbox(), nil, nil, nil, logger)

	// The pipeline goroutines must exit once the root context is cancelled.
	cancel()
	time.Sleep(50 * time.Millisecond)
}
