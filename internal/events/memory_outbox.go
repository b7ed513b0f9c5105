package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryOutbox is an in-memory outbox with the same dedupe semantics as the
// Postgres store. Used by tests and the memory-queue dev mode.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []OutboxEntry
	seen    map[string]struct{}
	done    map[uuid.UUID]struct{}
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{
		seen: make(map[string]struct{}),
		done: make(map[uuid.UUID]struct{}),
	}
}

func (m *MemoryOutbox) Insert(_ context.Context, dedupeKey string, eventType string, payload any) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("events: marshal payload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seen[dedupeKey]; dup {
		return false, nil
	}
	m.seen[dedupeKey] = struct{}{}
	m.entries = append(m.entries, OutboxEntry{
		ID:        uuid.New(),
		DedupeKey: dedupeKey,
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

func (m *MemoryOutbox) FetchPending(_ context.Context, limit int32) ([]OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []OutboxEntry
	for _, e := range m.entries {
		if _, delivered := m.done[e.ID]; delivered {
			continue
		}
		out = append(out, e)
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryOutbox) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, delivered := m.done[id]; delivered {
		return false, nil
	}
	m.done[id] = struct{}{}
	return true, nil
}

var _ OutboxSource = (*MemoryOutbox)(nil)
