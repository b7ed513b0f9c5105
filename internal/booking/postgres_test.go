package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithDB(mock), mock
}

func bookingRows(id uuid.UUID, status Status) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "reference_number", "booking_type", "status", "patient", "details",
		"scheduled_at", "total_paise", "notes", "created_at", "updated_at",
	}).AddRow(
		id, "BK-20260829-ABCDEFGH23", TypeTest, status,
		[]byte(`{"name":"Sunil","phone":"+919800000030"}`), []byte(nil),
		(*time.Time)(nil), (*int64)(nil), "", now, now,
	)
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(id, "BK-20260829-ABCDEFGH23", TypeTest, StatusPaymentPending,
			pgxmock.AnyArg(), pgxmock.AnyArg(), (*time.Time)(nil), (*int64)(nil), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO booking_status_history").
		WithArgs(id, StatusPaymentPending, "system", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.Create(context.Background(), &Booking{
		ID:              id,
		ReferenceNumber: "BK-20260829-ABCDEFGH23",
		Type:            TypeTest,
		Status:          StatusPaymentPending,
		Patient:         PatientContact{Name: "Sunil", Phone: "+919800000030"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresStoreConditionalUpdateApplies(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	// The read-back happens inside the transaction: the expectations are
	// ordered, so any read after Commit fails the test.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs(StatusPaid, (*time.Time)(nil), id, StatusPaymentPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO booking_status_history").
		WithArgs(id, StatusPaid, "system", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(id).
		WillReturnRows(bookingRows(id, StatusPaid))
	mock.ExpectQuery("SELECT status, actor_id, reason, created_at").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status", "actor_id", "reason", "created_at"}).
			AddRow(StatusPaymentPending, "system", "", time.Now()).
			AddRow(StatusPaid, "system", "", time.Now()))
	mock.ExpectCommit()

	updated, err := store.ConditionalUpdate(context.Background(), id, StatusPaymentPending, StatusPatch{
		Target:  StatusPaid,
		ActorID: "system",
	})
	if err != nil {
		t.Fatalf("conditional update: %v", err)
	}
	if updated.Status != StatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}
	if len(updated.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(updated.History))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// The snapshot handed back after a successful compare-and-set must be the
// committed transition's own state. A racing transition landing right after
// the commit must not leak into the winner's response or its notification
// event.
func TestPostgresStoreConditionalUpdateReturnsOwnCommittedState(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs(StatusApproved, (*time.Time)(nil), id, StatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO booking_status_history").
		WithArgs(id, StatusApproved, "staff-a", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(id).
		WillReturnRows(bookingRows(id, StatusApproved))
	mock.ExpectQuery("SELECT status, actor_id, reason, created_at").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status", "actor_id", "reason", "created_at"}).
			AddRow(StatusPaymentPending, "system", "", time.Now()).
			AddRow(StatusPaid, "system", "", time.Now()).
			AddRow(StatusApproved, "staff-a", "", time.Now()))
	mock.ExpectCommit()

	updated, err := store.ConditionalUpdate(context.Background(), id, StatusPaid, StatusPatch{
		Target:  StatusApproved,
		ActorID: "staff-a",
	})
	if err != nil {
		t.Fatalf("conditional update: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Fatalf("winner's snapshot reports %s, want approved", updated.Status)
	}
	if len(updated.History) != 3 {
		t.Fatalf("expected the winner's 3 history entries, got %d", len(updated.History))
	}
	if last := updated.History[len(updated.History)-1]; last.Status != StatusApproved || last.ActorID != "staff-a" {
		t.Fatalf("last history entry %+v, want the winner's approve", last)
	}
	// The event dedupe key derives from this snapshot; the wrong status or
	// history length here would enqueue under another transition's key.
	if key := eventDedupeKey(id, updated.Status, len(updated.History)); key != id.String()+":approved:3" {
		t.Fatalf("dedupe key %q, want %q", key, id.String()+":approved:3")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresStoreConditionalUpdateConflict(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs(StatusApproved, (*time.Time)(nil), id, StatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusRejected))
	mock.ExpectRollback()

	_, err := store.ConditionalUpdate(context.Background(), id, StatusPaid, StatusPatch{
		Target:  StatusApproved,
		ActorID: "staff-a",
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Actual != StatusRejected {
		t.Fatalf("expected actual rejected, got %s", conflict.Actual)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresStoreConditionalUpdateMissingBooking(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs(StatusApproved, (*time.Time)(nil), id, StatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.ConditionalUpdate(context.Background(), id, StatusPaid, StatusPatch{
		Target:  StatusApproved,
		ActorID: "staff-a",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresStoreListFilters(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE booking_type").
		WithArgs(TypeTest, []string{"paid", "approved"}, 10).
		WillReturnRows(bookingRows(id, StatusPaid))

	out, err := store.List(context.Background(), Filter{
		Type:     TypeTest,
		Statuses: []Status{StatusPaid, StatusApproved},
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != id {
		t.Fatalf("unexpected result: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
