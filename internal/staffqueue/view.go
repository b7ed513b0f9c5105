package staffqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aashamedix/booking-platform/internal/booking"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// QueueItem is the display-capable normalization of one booking, whatever
// its type. The staff queue shows tests, consultations and medicine orders
// in a single list.
type QueueItem struct {
	ID           uuid.UUID           `json:"id"`
	Reference    string              `json:"reference"`
	Type         booking.BookingType `json:"type"`
	Status       booking.Status      `json:"status"`
	Optimistic   bool                `json:"optimistic"`
	PatientName  string              `json:"patient_name"`
	PatientPhone string              `json:"patient_phone"`
	Summary      string              `json:"summary"`
	ScheduledAt  *time.Time          `json:"scheduled_at,omitempty"`
	TotalPaise   *int64              `json:"total_paise,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Stats are the dashboard counters, computed from the same fetched set the
// staff member is looking at: never from a separate count query.
type Stats struct {
	Total    int                         `json:"total"`
	ByStatus map[booking.Status]int      `json:"by_status"`
	ByType   map[booking.BookingType]int `json:"by_type"`
}

// Snapshot is one consistent read of the queue.
type Snapshot struct {
	Items     []QueueItem `json:"items"`
	Stats     Stats       `json:"stats"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Lister is the read side of the booking store the view polls.
type Lister interface {
	List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error)
}

// View is a polling read-model over the booking store. It owns its timer:
// Start begins polling, Stop cancels it, and no refresh fires after Stop
// returns. Optimistic local actions are overlaid on server reads until the
// server confirms or conflicts.
type View struct {
	store    Lister
	filter   booking.Filter
	interval time.Duration
	logger   *logging.Logger
	onUpdate func(Snapshot)

	mu       sync.Mutex
	pending  map[uuid.UUID]booking.Status
	snapshot Snapshot

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a View.
type Option func(*View)

// WithOnUpdate registers a callback invoked with every new snapshot.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(v *View) { v.onUpdate = fn }
}

// New creates a queue view; interval defaults to 30s when non-positive.
func New(store Lister, filter booking.Filter, interval time.Duration, logger *logging.Logger, opts ...Option) *View {
	if store == nil {
		panic("staffqueue: store required")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	v := &View{
		store:    store,
		filter:   filter,
		interval: interval,
		logger:   logger,
		pending:  make(map[uuid.UUID]booking.Status),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Refresh fetches the current queue and reconciles pending local actions.
func (v *View) Refresh(ctx context.Context) (Snapshot, error) {
	bookings, err := v.store.List(ctx, v.filter)
	if err != nil {
		return Snapshot{}, fmt.Errorf("staffqueue: refresh: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	items := make([]QueueItem, 0, len(bookings))
	stats := Stats{
		ByStatus: make(map[booking.Status]int),
		ByType:   make(map[booking.BookingType]int),
	}
	for _, b := range bookings {
		item := normalize(b)
		if optimistic, ok := v.pending[b.ID]; ok {
			if b.Status == optimistic {
				// Server caught up with the local action.
				delete(v.pending, b.ID)
			} else {
				// Keep showing the pending action's result; the server
				// snapshot is older than the action awaiting confirmation.
				item.Status = optimistic
				item.Optimistic = true
			}
		}
		items = append(items, item)
		stats.Total++
		stats.ByStatus[item.Status]++
		stats.ByType[item.Type]++
	}

	v.snapshot = Snapshot{Items: items, Stats: stats, FetchedAt: time.Now().UTC()}
	if v.onUpdate != nil {
		v.onUpdate(v.snapshot)
	}
	return v.snapshot, nil
}

// MarkPending records a local optimistic transition awaiting server
// confirmation. Refreshes will not regress the row until resolved.
func (v *View) MarkPending(id uuid.UUID, optimistic booking.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending[id] = optimistic
}

// ResolvePending replaces the optimistic state with server truth, whether
// the action succeeded or conflicted. An empty serverStatus only clears the
// pending marker, leaving the last snapshot untouched.
func (v *View) ResolvePending(id uuid.UUID, serverStatus booking.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pending, id)
	if serverStatus == "" {
		return
	}
	for i := range v.snapshot.Items {
		if v.snapshot.Items[i].ID == id {
			v.snapshot.Items[i].Status = serverStatus
			v.snapshot.Items[i].Optimistic = false
		}
	}
}

// Snapshot returns the last refreshed state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Start begins the poll loop. Calling Start on a running view is a no-op.
func (v *View) Start(ctx context.Context) {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})

	go func() {
		defer close(v.done)
		ticker := time.NewTicker(v.interval)
		defer ticker.Stop()

		if _, err := v.Refresh(runCtx); err != nil && runCtx.Err() == nil {
			v.logger.Error("staff queue refresh failed", "error", err)
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := v.Refresh(runCtx); err != nil && runCtx.Err() == nil {
					v.logger.Error("staff queue refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the poll loop and waits for it to exit, so no refresh can
// fire after Stop returns.
func (v *View) Stop() {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel = nil
	v.done = nil
}

// normalize maps a booking's tagged variant onto the shared display shape.
func normalize(b *booking.Booking) QueueItem {
	return QueueItem{
		ID:           b.ID,
		Reference:    b.ReferenceNumber,
		Type:         b.Type,
		Status:       b.Status,
		PatientName:  b.Patient.Name,
		PatientPhone: b.Patient.Phone,
		Summary:      summarize(b),
		ScheduledAt:  b.ScheduledAt,
		TotalPaise:   b.TotalPaise,
		CreatedAt:    b.CreatedAt,
	}
}

func summarize(b *booking.Booking) string {
	switch d := b.Details.(type) {
	case booking.TestDetails:
		if len(d.Items) == 1 {
			return d.Items[0].Name
		}
		return fmt.Sprintf("%d diagnostic tests", len(d.Items))
	case booking.DoctorDetails:
		if d.Specialty != "" {
			return fmt.Sprintf("%s (%s)", d.DoctorName, d.Specialty)
		}
		return d.DoctorName
	case booking.MedicineDetails:
		if len(d.Items) > 0 {
			return fmt.Sprintf("%d medicines: %s", len(d.Items), strings.Join(firstN(d.Items, 3), ", "))
		}
		if d.PrescriptionRef != "" {
			return "prescription " + d.PrescriptionRef
		}
		return "medicine order"
	default:
		return string(b.Type)
	}
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
