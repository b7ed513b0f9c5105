package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same compare-and-set semantics
// as the Postgres implementation. Used by tests and the local dev mode.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[uuid.UUID]*Booking),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneBooking(b)
	now := s.now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	cp.History = []HistoryEntry{{Status: cp.Status, ActorID: "system", Timestamp: now}}
	s.bookings[cp.ID] = cp

	b.CreatedAt = cp.CreatedAt
	b.UpdatedAt = cp.UpdatedAt
	b.History = append([]HistoryEntry(nil), cp.History...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *MemoryStore) GetByReference(_ context.Context, ref string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.ReferenceNumber == ref {
			return cloneBooking(b), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Booking
	for _, b := range s.bookings {
		if filter.Matches(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ConditionalUpdate(_ context.Context, id uuid.UUID, expected Status, patch StatusPatch) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != expected {
		return nil, &ConflictError{BookingID: id.String(), Expected: expected, Actual: b.Status}
	}

	now := s.now().UTC()
	b.Status = patch.Target
	if patch.ScheduledAt != nil {
		t := *patch.ScheduledAt
		b.ScheduledAt = &t
	}
	b.UpdatedAt = now
	b.History = append(b.History, HistoryEntry{
		Status:    patch.Target,
		ActorID:   patch.ActorID,
		Reason:    patch.Reason,
		Timestamp: now,
	})
	return cloneBooking(b), nil
}

func cloneBooking(b *Booking) *Booking {
	cp := *b
	if b.ScheduledAt != nil {
		t := *b.ScheduledAt
		cp.ScheduledAt = &t
	}
	if b.TotalPaise != nil {
		v := *b.TotalPaise
		cp.TotalPaise = &v
	}
	cp.History = append([]HistoryEntry(nil), b.History...)
	return &cp
}

var _ Store = (*MemoryStore)(nil)
