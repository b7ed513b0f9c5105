package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockOutbox(t *testing.T) (*OutboxStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewOutboxStoreWithDB(mock), mock
}

func TestOutboxStoreInsert(t *testing.T) {
	store, mock := newMockOutbox(t)

	mock.ExpectExec("INSERT INTO notification_outbox").
		WithArgs(pgxmock.AnyArg(), "b1:paid:2", "booking.status_changed.v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := store.Insert(context.Background(), "b1:paid:2", "booking.status_changed.v1", map[string]string{"booking_id": "b1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert to report true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxStoreInsertDedupes(t *testing.T) {
	store, mock := newMockOutbox(t)

	mock.ExpectExec("INSERT INTO notification_outbox").
		WithArgs(pgxmock.AnyArg(), "b1:paid:2", "booking.status_changed.v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.Insert(context.Background(), "b1:paid:2", "booking.status_changed.v1", map[string]string{"booking_id": "b1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate dedupe key must report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxStoreFetchPending(t *testing.T) {
	store, mock := newMockOutbox(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, dedupe_key, type, payload, created_at").
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "dedupe_key", "type", "payload", "created_at"}).
			AddRow(id, "b1:paid:2", "booking.status_changed.v1", []byte(`{"booking_id":"b1"}`), time.Now()))

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].DedupeKey != "b1:paid:2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxStoreMarkDelivered(t *testing.T) {
	store, mock := newMockOutbox(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE notification_outbox").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if !ok {
		t.Fatal("expected first mark to report true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryOutboxDedupes(t *testing.T) {
	outbox := NewMemoryOutbox()
	ctx := context.Background()

	inserted, err := outbox.Insert(ctx, "key-1", "booking.status_changed.v1", map[string]string{"a": "1"})
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = outbox.Insert(ctx, "key-1", "booking.status_changed.v1", map[string]string{"a": "1"})
	if err != nil || inserted {
		t.Fatalf("duplicate insert: inserted=%v err=%v", inserted, err)
	}

	pending, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}
}

type recordingHandler struct {
	handled []OutboxEntry
	err     error
}

func (h *recordingHandler) Handle(_ context.Context, entry OutboxEntry) error {
	if h.err != nil {
		return h.err
	}
	h.handled = append(h.handled, entry)
	return nil
}

func TestDelivererDrainMarksDelivered(t *testing.T) {
	outbox := NewMemoryOutbox()
	ctx := context.Background()
	for _, key := range []string{"k1", "k2", "k3"} {
		if _, err := outbox.Insert(ctx, key, "booking.status_changed.v1", map[string]string{"k": key}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	handler := &recordingHandler{}
	d := NewDeliverer(outbox, handler, nil).WithBatchSize(10)

	d.drain(ctx)

	if len(handler.handled) != 3 {
		t.Fatalf("expected 3 handled entries, got %d", len(handler.handled))
	}
	pending, _ := outbox.FetchPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, %d still pending", len(pending))
	}
}

func TestDelivererDrainLeavesFailedEntriesPending(t *testing.T) {
	outbox := NewMemoryOutbox()
	ctx := context.Background()
	if _, err := outbox.Insert(ctx, "k1", "booking.status_changed.v1", map[string]string{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handler := &recordingHandler{err: errors.New("transport down")}
	d := NewDeliverer(outbox, handler, nil).WithBatchSize(10)

	d.drain(ctx)

	pending, _ := outbox.FetchPending(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("failed entry must stay pending, got %d", len(pending))
	}

	// Transport recovers; the next poll delivers it.
	handler.err = nil
	d.drain(ctx)
	pending, _ = outbox.FetchPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected retry to deliver, %d still pending", len(pending))
	}
}
