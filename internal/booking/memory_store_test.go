package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func seedMemoryBooking(t *testing.T, s *MemoryStore, status Status) *Booking {
	t.Helper()
	b := &Booking{
		ID:              uuid.New(),
		ReferenceNumber: "BK-20260829-" + uuid.NewString()[:10],
		Type:            TypeTest,
		Status:          status,
		Patient:         PatientContact{Name: "Kiran", Phone: "+919800000020"},
	}
	if err := s.Create(context.Background(), b); err != nil {
		t.Fatalf("create: %v", err)
	}
	return b
}

func TestMemoryStoreCreateRecordsInitialHistory(t *testing.T) {
	s := NewMemoryStore()
	b := seedMemoryBooking(t, s, StatusPaymentPending)

	got, err := s.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(got.History))
	}
	if got.History[0].Status != StatusPaymentPending {
		t.Fatalf("expected initial history status %s, got %s", StatusPaymentPending, got.History[0].Status)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	b := seedMemoryBooking(t, s, StatusPaid)

	got, _ := s.Get(context.Background(), b.ID)
	got.Status = StatusCancelled
	got.History = append(got.History, HistoryEntry{Status: StatusCancelled})

	again, _ := s.Get(context.Background(), b.ID)
	if again.Status != StatusPaid {
		t.Fatalf("mutating a returned booking must not affect the store")
	}
	if len(again.History) != 1 {
		t.Fatalf("mutating returned history must not affect the store")
	}
}

func TestMemoryStoreConditionalUpdateConflict(t *testing.T) {
	s := NewMemoryStore()
	b := seedMemoryBooking(t, s, StatusApproved)

	_, err := s.ConditionalUpdate(context.Background(), b.ID, StatusPaid, StatusPatch{Target: StatusRejected, ActorID: "staff-1", Reason: "x"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Actual != StatusApproved {
		t.Fatalf("expected actual status approved, got %s", conflict.Actual)
	}
}

func TestMemoryStoreConditionalUpdateNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.ConditionalUpdate(context.Background(), uuid.New(), StatusPaid, StatusPatch{Target: StatusApproved, ActorID: "staff-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Two racing transitions on the same booking: exactly one wins the
// compare-and-set, and the history grows by exactly one entry.
func TestMemoryStoreConcurrentTransitionRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := NewMemoryStore()
		b := seedMemoryBooking(t, s, StatusPaid)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		patches := []StatusPatch{
			{Target: StatusApproved, ActorID: "staff-a"},
			{Target: StatusRejected, ActorID: "staff-b", Reason: "slot full"},
		}
		for j, patch := range patches {
			wg.Add(1)
			go func(j int, patch StatusPatch) {
				defer wg.Done()
				_, errs[j] = s.ConditionalUpdate(context.Background(), b.ID, StatusPaid, patch)
			}(j, patch)
		}
		wg.Wait()

		var successes, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case IsConflict(err):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if successes != 1 || conflicts != 1 {
			t.Fatalf("expected exactly one winner and one conflict, got %d/%d", successes, conflicts)
		}

		final, _ := s.Get(context.Background(), b.ID)
		if final.Status != StatusApproved && final.Status != StatusRejected {
			t.Fatalf("unexpected final status %s", final.Status)
		}
		if len(final.History) != 2 {
			t.Fatalf("expected exactly one new history entry, got %d total", len(final.History))
		}
	}
}

func TestMemoryStoreListFilters(t *testing.T) {
	s := NewMemoryStore()
	seedMemoryBooking(t, s, StatusPaid)
	seedMemoryBooking(t, s, StatusApproved)
	doctor := &Booking{
		ID:              uuid.New(),
		ReferenceNumber: "DR-20260829-" + uuid.NewString()[:10],
		Type:            TypeDoctor,
		Status:          StatusPaid,
		Patient:         PatientContact{Name: "Lata", Phone: "+919800000021"},
	}
	if err := s.Create(context.Background(), doctor); err != nil {
		t.Fatalf("create: %v", err)
	}

	byType, err := s.List(context.Background(), Filter{Type: TypeDoctor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != doctor.ID {
		t.Fatalf("expected only the doctor booking, got %d", len(byType))
	}

	byStatus, err := s.List(context.Background(), Filter{Statuses: []Status{StatusPaid}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("expected 2 paid bookings, got %d", len(byStatus))
	}

	limited, err := s.List(context.Background(), Filter{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}
