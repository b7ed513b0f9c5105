package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aashamedix/booking-platform/pkg/logging"
)

// Notification is one in-app notification center entry.
type Notification struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Event     string    `json:"event"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// InAppStore is the durable side of the push channel: a Redis-backed
// per-user notification center. Entries expire after the retention window.
type InAppStore struct {
	client     *redis.Client
	retention  time.Duration
	logger     *logging.Logger
	maxPerUser int64
}

// NewInAppStore creates a store over the given Redis client.
func NewInAppStore(client *redis.Client, retention time.Duration, logger *logging.Logger) *InAppStore {
	if client == nil {
		panic("notify: redis client required")
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InAppStore{client: client, retention: retention, logger: logger, maxPerUser: 100}
}

func inappHashKey(userID string) string  { return "inapp:" + userID }
func inappIndexKey(userID string) string { return "inapp:z:" + userID }
func inappDedupeKey(key string) string   { return "inapp:dedupe:" + key }

// Push stores a notification for the user. The idempotency key guards
// against duplicate delivery of the same (booking, event, channel).
func (s *InAppStore) Push(ctx context.Context, userID string, n Notification, idempotencyKey string) error {
	if idempotencyKey != "" {
		ok, err := s.client.SetNX(ctx, inappDedupeKey(idempotencyKey), "1", s.retention).Result()
		if err != nil {
			return fmt.Errorf("notify: inapp dedupe check: %w", err)
		}
		if !ok {
			s.logger.Debug("inapp notification already delivered", "key", idempotencyKey)
			return nil
		}
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode inapp notification: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, inappHashKey(userID), n.ID, data)
	pipe.ZAdd(ctx, inappIndexKey(userID), redis.Z{Score: float64(n.CreatedAt.UnixNano()), Member: n.ID})
	pipe.ZRemRangeByRank(ctx, inappIndexKey(userID), 0, -(s.maxPerUser + 1))
	pipe.Expire(ctx, inappHashKey(userID), s.retention)
	pipe.Expire(ctx, inappIndexKey(userID), s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: store inapp notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *InAppStore) List(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.client.ZRevRange(ctx, inappIndexKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: list inapp ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := s.client.HMGet(ctx, inappHashKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: load inapp notifications: %w", err)
	}

	out := make([]Notification, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var n Notification
		if err := json.Unmarshal([]byte(str), &n); err != nil {
			s.logger.Warn("skipping undecodable inapp notification", "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *InAppStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	all, err := s.List(ctx, userID, s.maxPerUser)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range all {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead flags a single notification as read.
func (s *InAppStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	raw, err := s.client.HGet(ctx, inappHashKey(userID), notificationID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("notify: load inapp notification: %w", err)
	}
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return fmt.Errorf("notify: decode inapp notification: %w", err)
	}
	if n.Read {
		return nil
	}
	n.Read = true
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode inapp notification: %w", err)
	}
	if err := s.client.HSet(ctx, inappHashKey(userID), notificationID, data).Err(); err != nil {
		return fmt.Errorf("notify: mark read: %w", err)
	}
	return nil
}

// MarkAllRead flags every notification of the user as read.
func (s *InAppStore) MarkAllRead(ctx context.Context, userID string) error {
	all, err := s.List(ctx, userID, s.maxPerUser)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, n := range all {
		if n.Read {
			continue
		}
		n.Read = true
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("notify: encode inapp notification: %w", err)
		}
		pipe.HSet(ctx, inappHashKey(userID), n.ID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: mark all read: %w", err)
	}
	return nil
}
