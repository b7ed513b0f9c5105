package booking

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aashamedix/booking-platform/internal/events"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

var lifecycleTracer = otel.Tracer("aashamedix.internal.booking")

// EventStatusChanged is the outbox event type for committed transitions.
const EventStatusChanged = "booking.status_changed.v1"

// NotificationEnqueuer accepts a status-change event for later dispatch.
// Insert must be idempotent on the dedupe key.
type NotificationEnqueuer interface {
	Insert(ctx context.Context, dedupeKey string, eventType string, payload any) (bool, error)
}

// Manager owns all mutations of booking status. Every transition goes
// through the store's conditional update, so two racing actors resolve to
// exactly one winner and one ConflictError.
type Manager struct {
	store  Store
	outbox NotificationEnqueuer
	refs   *ReferenceGenerator
	logger *logging.Logger
	now    func() time.Time
}

// NewManager constructs a lifecycle manager.
func NewManager(store Store, outbox NotificationEnqueuer, refs *ReferenceGenerator, logger *logging.Logger) *Manager {
	if store == nil {
		panic("booking: store required")
	}
	if refs == nil {
		refs = NewReferenceGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:  store,
		outbox: outbox,
		refs:   refs,
		logger: logger,
		now:    time.Now,
	}
}

// AdmitRequest carries a validated creation payload from the booking flow.
// Payload validation happens upstream; admission only assigns identity and
// the initial status.
type AdmitRequest struct {
	Type        BookingType
	Patient     PatientContact
	Details     Details
	ScheduledAt *time.Time
	TotalPaise  *int64
	Notes       string
}

// Admit assigns a reference number and initial status, then persists the
// booking. Medicine orders enter at paid since no payment step applies.
func (m *Manager) Admit(ctx context.Context, req AdmitRequest) (*Booking, error) {
	ctx, span := lifecycleTracer.Start(ctx, "booking.admit")
	defer span.End()

	if !req.Type.Valid() {
		return nil, &ValidationError{Field: "type", Detail: "unknown booking type"}
	}
	if req.Details != nil && req.Details.BookingType() != req.Type {
		return nil, &ValidationError{Field: "details", Detail: "details do not match booking type"}
	}

	b := &Booking{
		ID:              uuid.New(),
		ReferenceNumber: m.refs.NewReference(req.Type),
		Type:            req.Type,
		Status:          InitialStatus(req.Type),
		Patient:         req.Patient,
		Details:         req.Details,
		ScheduledAt:     req.ScheduledAt,
		TotalPaise:      req.TotalPaise,
		Notes:           req.Notes,
	}
	span.SetAttributes(
		attribute.String("booking.reference", b.ReferenceNumber),
		attribute.String("booking.type", string(b.Type)),
	)

	if err := m.store.Create(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.logger.Info("booking admitted",
		"booking_id", b.ID,
		"reference", b.ReferenceNumber,
		"type", b.Type,
		"status", b.Status,
	)
	return b, nil
}

// TransitionRequest describes one requested edge of the lifecycle graph.
type TransitionRequest struct {
	BookingID      uuid.UUID
	ExpectedStatus Status
	TargetStatus   Status
	ActorID        string
	Reason         string
	NewSchedule    *time.Time
}

// ApplyTransition validates the requested edge, applies it with a
// compare-and-set against the store, and enqueues exactly one notification
// event for the committed transition.
//
// A caller retrying after a timeout whose write actually committed will fail
// the compare-and-set (the stored status already moved) and receive a
// ConflictError carrying the committed status; no second event is enqueued.
func (m *Manager) ApplyTransition(ctx context.Context, req TransitionRequest) (*Booking, error) {
	ctx, span := lifecycleTracer.Start(ctx, "booking.apply_transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", req.BookingID.String()),
		attribute.String("booking.expected_status", string(req.ExpectedStatus)),
		attribute.String("booking.target_status", string(req.TargetStatus)),
	)

	if err := m.validate(req); err != nil {
		span.RecordError(err)
		return nil, err
	}

	patch := StatusPatch{
		Target:      req.TargetStatus,
		ActorID:     req.ActorID,
		Reason:      req.Reason,
		ScheduledAt: req.NewSchedule,
	}
	updated, err := m.store.ConditionalUpdate(ctx, req.BookingID, req.ExpectedStatus, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.logger.Info("booking transitioned",
		"booking_id", updated.ID,
		"reference", updated.ReferenceNumber,
		"from", req.ExpectedStatus,
		"to", updated.Status,
		"actor", req.ActorID,
	)

	m.enqueueNotification(ctx, updated, req)
	return updated, nil
}

func (m *Manager) validate(req TransitionRequest) error {
	if !req.ExpectedStatus.Valid() {
		return &ValidationError{Field: "expected_status", Detail: "unknown status"}
	}
	if !req.TargetStatus.Valid() {
		return &ValidationError{Field: "target_status", Detail: "unknown status"}
	}
	if !CanTransition(req.ExpectedStatus, req.TargetStatus) {
		return &InvalidTransitionError{From: req.ExpectedStatus, To: req.TargetStatus}
	}
	if req.ActorID == "" {
		return &ValidationError{Field: "actor_id", Detail: "required"}
	}
	if req.TargetStatus == StatusRejected && req.Reason == "" {
		return &ValidationError{Field: "reason", Detail: "required when rejecting"}
	}
	if req.TargetStatus == StatusRescheduled {
		if req.NewSchedule == nil {
			return &ValidationError{Field: "new_schedule", Detail: "required when rescheduling"}
		}
		if !req.NewSchedule.After(m.now()) {
			return &ValidationError{Field: "new_schedule", Detail: "must be in the future"}
		}
	}
	return nil
}

// enqueueNotification inserts one outbox event for the committed
// transition. The dedupe key includes the history length, which strictly
// increases per accepted transition, so a booking that legitimately revisits
// a status (approve, reschedule, approve again) still notifies each time
// while duplicate inserts for the same commit collapse.
func (m *Manager) enqueueNotification(ctx context.Context, b *Booking, req TransitionRequest) {
	if m.outbox == nil {
		return
	}

	evt := events.BookingStatusChangedV1{
		EventID:         uuid.NewString(),
		BookingID:       b.ID.String(),
		ReferenceNumber: b.ReferenceNumber,
		BookingType:     string(b.Type),
		OldStatus:       string(req.ExpectedStatus),
		NewStatus:       string(b.Status),
		ActorID:         req.ActorID,
		Reason:          req.Reason,
		ScheduledAt:     b.ScheduledAt,
		PatientName:     b.Patient.Name,
		PatientPhone:    b.Patient.Phone,
		PatientEmail:    b.Patient.Email,
		PatientUserID:   b.Patient.UserID,
		OccurredAt:      m.now().UTC(),
	}

	key := eventDedupeKey(b.ID, b.Status, len(b.History))
	inserted, err := m.outbox.Insert(ctx, key, EventStatusChanged, evt)
	if err != nil {
		// Notification delivery is best-effort; the transition already
		// committed and must not be failed retroactively.
		m.logger.Error("failed to enqueue notification", "error", err, "booking_id", b.ID, "status", b.Status)
		return
	}
	if !inserted {
		m.logger.Debug("notification already enqueued", "booking_id", b.ID, "status", b.Status)
	}
}

func eventDedupeKey(id uuid.UUID, status Status, historyLen int) string {
	return id.String() + ":" + string(status) + ":" + strconv.Itoa(historyLen)
}
