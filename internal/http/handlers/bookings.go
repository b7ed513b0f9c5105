package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aashamedix/booking-platform/internal/booking"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// BookingsHandler serves the patient-facing booking endpoints.
type BookingsHandler struct {
	manager *booking.Manager
	store   booking.Store
	logger  *logging.Logger
}

// NewBookingsHandler creates a bookings handler.
func NewBookingsHandler(manager *booking.Manager, store booking.Store, logger *logging.Logger) *BookingsHandler {
	if manager == nil {
		panic("handlers: booking manager required")
	}
	if store == nil {
		panic("handlers: booking store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{manager: manager, store: store, logger: logger}
}

// CreateBookingRequest is the payload for admitting a new booking.
type CreateBookingRequest struct {
	Type        string                 `json:"type"`
	Patient     booking.PatientContact `json:"patient"`
	Details     json.RawMessage        `json:"details,omitempty"`
	ScheduledAt *time.Time             `json:"scheduled_at,omitempty"`
	TotalPaise  *int64                 `json:"total_paise,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
}

// BookingResponse is the wire shape of a booking.
type BookingResponse struct {
	ID              string                 `json:"id"`
	ReferenceNumber string                 `json:"reference_number"`
	Type            string                 `json:"type"`
	Status          string                 `json:"status"`
	Patient         booking.PatientContact `json:"patient"`
	Details         booking.Details        `json:"details,omitempty"`
	ScheduledAt     *time.Time             `json:"scheduled_at,omitempty"`
	TotalPaise      *int64                 `json:"total_paise,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	History         []booking.HistoryEntry `json:"history"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	history := b.History
	if history == nil {
		history = []booking.HistoryEntry{}
	}
	return BookingResponse{
		ID:              b.ID.String(),
		ReferenceNumber: b.ReferenceNumber,
		Type:            string(b.Type),
		Status:          string(b.Status),
		Patient:         b.Patient,
		Details:         b.Details,
		ScheduledAt:     b.ScheduledAt,
		TotalPaise:      b.TotalPaise,
		Notes:           b.Notes,
		History:         history,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// Create admits a new booking.
// POST /bookings
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	t := booking.BookingType(req.Type)
	if !t.Valid() {
		jsonError(w, "unknown booking type", http.StatusBadRequest)
		return
	}
	if req.Patient.Name == "" || req.Patient.Phone == "" {
		jsonError(w, "patient name and phone are required", http.StatusBadRequest)
		return
	}

	var details booking.Details
	if len(req.Details) > 0 {
		var err error
		details, err = booking.DecodeDetails(t, req.Details)
		if err != nil {
			jsonError(w, "invalid details payload", http.StatusBadRequest)
			return
		}
	}

	b, err := h.manager.Admit(r.Context(), booking.AdmitRequest{
		Type:        t,
		Patient:     req.Patient,
		Details:     details,
		ScheduledAt: req.ScheduledAt,
		TotalPaise:  req.TotalPaise,
		Notes:       req.Notes,
	})
	if err != nil {
		var ve *booking.ValidationError
		if errors.As(err, &ve) {
			jsonError(w, ve.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to admit booking", "error", err)
		jsonError(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// Get returns a booking by ID.
// GET /bookings/{bookingID}
func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		jsonError(w, "invalid booking id", http.StatusBadRequest)
		return
	}

	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			jsonError(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load booking", "error", err, "booking_id", id)
		jsonError(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// GetByReference returns a booking by its human-facing reference number.
// GET /bookings/reference/{reference}
func (h *BookingsHandler) GetByReference(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	if ref == "" {
		jsonError(w, "missing reference", http.StatusBadRequest)
		return
	}

	b, err := h.store.GetByReference(r.Context(), ref)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			jsonError(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load booking", "error", err, "reference", ref)
		jsonError(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}
