package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aashamedix/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/aashamedix/booking-platform/internal/http/middleware"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Bookings           *handlers.BookingsHandler
	Staff              *handlers.StaffHandler
	Notifications      *handlers.NotificationsHandler
	StaffAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitRPS enables per-IP rate limiting on patient endpoints when
	// positive.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics).
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient-facing booking endpoints.
	if cfg.Bookings != nil {
		r.Group(func(patient chi.Router) {
			if cfg.RateLimitRPS > 0 {
				patient.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
			}
			patient.Post("/bookings", cfg.Bookings.Create)
			patient.Get("/bookings/{bookingID}", cfg.Bookings.Get)
			patient.Get("/bookings/reference/{reference}", cfg.Bookings.GetByReference)
		})
	}

	// In-app notification center.
	if cfg.Notifications != nil {
		r.Route("/users/{userID}/notifications", func(n chi.Router) {
			n.Get("/", cfg.Notifications.List)
			n.Get("/unread-count", cfg.Notifications.UnreadCount)
			n.Post("/read-all", cfg.Notifications.MarkAllRead)
			n.Post("/{notificationID}/read", cfg.Notifications.MarkRead)
		})
	}

	// Staff endpoints behind JWT auth.
	if cfg.Staff != nil {
		r.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
			staff.Get("/staff/queue", cfg.Staff.Queue)
			staff.Post("/staff/bookings/{bookingID}/transition", cfg.Staff.Transition)
		})
	}

	return r
}
