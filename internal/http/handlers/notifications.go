package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aashamedix/booking-platform/internal/notify"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// NotificationsHandler serves the patient's in-app notification center.
type NotificationsHandler struct {
	store  *notify.InAppStore
	logger *logging.Logger
}

// NewNotificationsHandler creates a notifications handler.
func NewNotificationsHandler(store *notify.InAppStore, logger *logging.Logger) *NotificationsHandler {
	if store == nil {
		panic("handlers: inapp store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationsHandler{store: store, logger: logger}
}

// ListResponse wraps the user's notifications.
type ListResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

// List returns the user's notifications, newest first.
// GET /users/{userID}/notifications
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		jsonError(w, "missing userID", http.StatusBadRequest)
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	notifications, err := h.store.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		jsonError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Notifications: notifications})
}

// UnreadCount returns the number of unread notifications.
// GET /users/{userID}/notifications/unread-count
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		jsonError(w, "missing userID", http.StatusBadRequest)
		return
	}

	count, err := h.store.UnreadCount(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count unread notifications", "error", err, "user_id", userID)
		jsonError(w, "failed to count notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead flags one notification as read.
// POST /users/{userID}/notifications/{notificationID}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	notificationID := chi.URLParam(r, "notificationID")
	if userID == "" || notificationID == "" {
		jsonError(w, "missing userID or notificationID", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkRead(r.Context(), userID, notificationID); err != nil {
		h.logger.Error("failed to mark notification read", "error", err, "user_id", userID)
		jsonError(w, "failed to mark read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead flags every notification of the user as read.
// POST /users/{userID}/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		jsonError(w, "missing userID", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkAllRead(r.Context(), userID); err != nil {
		h.logger.Error("failed to mark all notifications read", "error", err, "user_id", userID)
		jsonError(w, "failed to mark all read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
