package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresDeliveryLog records delivery attempts in the
// notification_deliveries table.
type PostgresDeliveryLog struct {
	db execer
}

func NewPostgresDeliveryLog(pool *pgxpool.Pool) *PostgresDeliveryLog {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &PostgresDeliveryLog{db: pool}
}

func NewPostgresDeliveryLogWithDB(db execer) *PostgresDeliveryLog {
	if db == nil {
		panic("notify: db required")
	}
	return &PostgresDeliveryLog{db: db}
}

func (l *PostgresDeliveryLog) Record(ctx context.Context, attempt DeliveryAttempt) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO notification_deliveries (booking_id, event, channel, outcome, attempts, last_error, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, attempt.BookingID, attempt.Event, attempt.Channel, attempt.Outcome, attempt.Attempts, attempt.LastError, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("notify: record delivery: %w", err)
	}
	return nil
}

// MemoryDeliveryLog collects attempts in memory for tests and dev mode.
type MemoryDeliveryLog struct {
	mu       sync.Mutex
	attempts []DeliveryAttempt
}

func NewMemoryDeliveryLog() *MemoryDeliveryLog {
	return &MemoryDeliveryLog{}
}

func (l *MemoryDeliveryLog) Record(_ context.Context, attempt DeliveryAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Attempts returns a copy of everything recorded so far.
func (l *MemoryDeliveryLog) Attempts() []DeliveryAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DeliveryAttempt(nil), l.attempts...)
}

var _ DeliveryRecorder = (*PostgresDeliveryLog)(nil)
var _ DeliveryRecorder = (*MemoryDeliveryLog)(nil)
