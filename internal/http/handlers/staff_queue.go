package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aashamedix/booking-platform/internal/booking"
	"github.com/aashamedix/booking-platform/internal/http/middleware"
	"github.com/aashamedix/booking-platform/internal/observability/metrics"
	"github.com/aashamedix/booking-platform/internal/staffqueue"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// StaffHandler serves the staff dashboard: the unified queue and the
// lifecycle transition actions.
type StaffHandler struct {
	manager *booking.Manager
	view    *staffqueue.View
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewStaffHandler creates a staff handler. view and metrics are optional.
func NewStaffHandler(manager *booking.Manager, view *staffqueue.View, m *metrics.BookingMetrics, logger *logging.Logger) *StaffHandler {
	if manager == nil {
		panic("handlers: booking manager required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffHandler{manager: manager, view: view, metrics: m, logger: logger}
}

// Queue returns a fresh snapshot of the staff queue with its counters.
// GET /staff/queue
func (h *StaffHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.view == nil {
		jsonError(w, "queue view unavailable", http.StatusServiceUnavailable)
		return
	}
	snap, err := h.view.Refresh(r.Context())
	if err != nil {
		h.logger.Error("failed to refresh staff queue", "error", err)
		jsonError(w, "failed to load queue", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// TransitionRequestBody is the payload for a staff lifecycle action.
type TransitionRequestBody struct {
	ExpectedStatus string     `json:"expected_status"`
	TargetStatus   string     `json:"target_status"`
	Reason         string     `json:"reason,omitempty"`
	NewSchedule    *time.Time `json:"new_schedule,omitempty"`
}

// ConflictResponse tells the caller what the booking's status actually is
// when their expected status was stale.
type ConflictResponse struct {
	Error        string `json:"error"`
	ActualStatus string `json:"actual_status"`
}

// Transition applies one lifecycle action to a booking. The acting staff
// member comes from the JWT subject. A stale expectation yields 409 with
// the committed status so the dashboard can re-render server truth.
// POST /staff/bookings/{bookingID}/transition
func (h *StaffHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		jsonError(w, "invalid booking id", http.StatusBadRequest)
		return
	}

	var body TransitionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	actor := middleware.StaffActorID(r.Context())
	if actor == "" {
		jsonError(w, "missing staff identity", http.StatusUnauthorized)
		return
	}

	req := booking.TransitionRequest{
		BookingID:      id,
		ExpectedStatus: booking.Status(body.ExpectedStatus),
		TargetStatus:   booking.Status(body.TargetStatus),
		ActorID:        actor,
		Reason:         body.Reason,
		NewSchedule:    body.NewSchedule,
	}

	if h.view != nil {
		h.view.MarkPending(id, req.TargetStatus)
	}

	start := time.Now()
	updated, err := h.manager.ApplyTransition(r.Context(), req)
	h.metrics.ObserveTransitionLatency(body.TargetStatus, time.Since(start).Seconds())
	if err != nil {
		h.handleTransitionError(w, id, body.TargetStatus, err)
		return
	}

	h.metrics.ObserveTransition(body.TargetStatus, "applied")
	if h.view != nil {
		h.view.ResolvePending(id, updated.Status)
	}
	writeJSON(w, http.StatusOK, toBookingResponse(updated))
}

func (h *StaffHandler) handleTransitionError(w http.ResponseWriter, id uuid.UUID, target string, err error) {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		h.metrics.ObserveTransition(target, "conflict")
		if h.view != nil {
			h.view.ResolvePending(id, conflict.Actual)
		}
		writeJSON(w, http.StatusConflict, ConflictResponse{
			Error:        "booking status changed since last read",
			ActualStatus: string(conflict.Actual),
		})
		return
	}

	if h.view != nil {
		h.view.ResolvePending(id, "")
	}

	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		h.metrics.ObserveTransition(target, "rejected")
		jsonError(w, ve.Error(), http.StatusBadRequest)
		return
	}
	var ite *booking.InvalidTransitionError
	if errors.As(err, &ite) {
		h.metrics.ObserveTransition(target, "rejected")
		jsonError(w, ite.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, booking.ErrNotFound) {
		h.metrics.ObserveTransition(target, "not_found")
		jsonError(w, "booking not found", http.StatusNotFound)
		return
	}

	h.metrics.ObserveTransition(target, "error")
	h.logger.Error("failed to apply transition", "error", err, "booking_id", id, "target", target)
	jsonError(w, "failed to apply transition", http.StatusInternalServerError)
}
