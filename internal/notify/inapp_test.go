package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestInApp(t *testing.T) *InAppStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewInAppStore(client, time.Hour, nil)
}

func TestInAppPushAndList(t *testing.T) {
	store := newTestInApp(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n := Notification{
			BookingID: "b-1",
			Event:     "approved",
			Title:     fmt.Sprintf("title %d", i),
			Body:      "body",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second).UTC(),
		}
		if err := store.Push(ctx, "user-1", n, fmt.Sprintf("key-%d", i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	list, err := store.List(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
	// Newest first.
	if list[0].Title != "title 2" || list[2].Title != "title 0" {
		t.Fatalf("unexpected order: %q .. %q", list[0].Title, list[2].Title)
	}
}

func TestInAppPushDedupesOnIdempotencyKey(t *testing.T) {
	store := newTestInApp(t)
	ctx := context.Background()

	n := Notification{BookingID: "b-1", Event: "approved", Title: "confirmed"}
	for i := 0; i < 3; i++ {
		if err := store.Push(ctx, "user-1", n, "b-1:approved:push"); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	list, err := store.List(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single deduped notification, got %d", len(list))
	}
}

func TestInAppUnreadCountAndMarkRead(t *testing.T) {
	store := newTestInApp(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n := Notification{BookingID: "b-1", Event: "approved", Title: fmt.Sprintf("t%d", i)}
		if err := store.Push(ctx, "user-1", n, fmt.Sprintf("k%d", i)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	count, err := store.UnreadCount(ctx, "user-1")
	if err != nil || count != 2 {
		t.Fatalf("unread = %d, err = %v, want 2", count, err)
	}

	list, _ := store.List(ctx, "user-1", 10)
	if err := store.MarkRead(ctx, "user-1", list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = store.UnreadCount(ctx, "user-1")
	if count != 1 {
		t.Fatalf("unread after mark = %d, want 1", count)
	}

	if err := store.MarkAllRead(ctx, "user-1"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	count, _ = store.UnreadCount(ctx, "user-1")
	if count != 0 {
		t.Fatalf("unread after mark all = %d, want 0", count)
	}
}

func TestInAppMarkReadUnknownIDIsNoop(t *testing.T) {
	store := newTestInApp(t)
	if err := store.MarkRead(context.Background(), "user-1", "missing"); err != nil {
		t.Fatalf("mark read on missing id: %v", err)
	}
}

func TestInAppTrimsToMaxPerUser(t *testing.T) {
	store := newTestInApp(t)
	store.maxPerUser = 5
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		n := Notification{
			BookingID: "b-1",
			Event:     "approved",
			Title:     fmt.Sprintf("t%d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second).UTC(),
		}
		if err := store.Push(ctx, "user-1", n, fmt.Sprintf("k%d", i)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	list, err := store.List(ctx, "user-1", 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected index trimmed to 5, got %d", len(list))
	}
	if list[0].Title != "t7" {
		t.Fatalf("expected newest kept, got %q", list[0].Title)
	}
}
