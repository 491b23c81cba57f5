package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/auth"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Availability  *availability.Handler
	Scheduling    *scheduling.Handler
	Appointments  *appointments.Handler
	Auth          *auth.Handler
	Authenticator httpmiddleware.Authenticator

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	PublicRateLimiter  *httpmiddleware.RateLimiter

	// Optional dependency probes surfaced by /health.
	HealthChecks map[string]HealthChecker
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		// Public endpoints: patients browse and book, admins log in.
		api.Group(func(public chi.Router) {
			if cfg.PublicRateLimiter != nil {
				public.Use(httpmiddleware.RateLimit(cfg.PublicRateLimiter))
			}
			if cfg.Scheduling != nil {
				public.Get("/slots", cfg.Scheduling.PublicSlots)
				public.Post("/appointments", cfg.Scheduling.Book)
			}
			if cfg.Auth != nil {
				public.Post("/auth/login", cfg.Auth.Login)
				public.Post("/auth/token/refresh", cfg.Auth.Refresh)
				public.Post("/auth/token/verify", cfg.Auth.Verify)
			}
		})

		// Admin endpoints (bearer access token)
		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.Authenticator))

			if cfg.Availability != nil {
				admin.Route("/availability", func(r chi.Router) {
					r.Get("/", cfg.Availability.ListAvailability)
					r.Post("/", cfg.Availability.CreateAvailability)
					r.Delete("/{id}", cfg.Availability.DeleteAvailability)
				})
				admin.Route("/blocked-slots", func(r chi.Router) {
					r.Get("/", cfg.Availability.ListBlocks)
					r.Post("/", cfg.Availability.CreateBlock)
					r.Delete("/{id}", cfg.Availability.DeleteBlock)
				})
			}
			if cfg.Scheduling != nil {
				admin.Get("/slots/detailed", cfg.Scheduling.DetailedSlots)
			}
			if cfg.Appointments != nil {
				admin.Get("/appointments", cfg.Appointments.List)
				admin.Get("/appointments/stats", cfg.Appointments.Stats)
				admin.Get("/appointments/{id}", cfg.Appointments.Get)
				admin.Put("/appointments/{id}", cfg.Appointments.UpdateStatus)
			}
			if cfg.Auth != nil {
				admin.Post("/auth/logout", cfg.Auth.Logout)
				admin.Get("/auth/profile", cfg.Auth.Profile)
			}
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		respond.JSON(w, status, resp)
	}
}
