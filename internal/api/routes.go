package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	DefaultOrgID   string
	AllowedOrigins []string
}

// NewRouter wires middleware, health probes and the /api routes.
func NewRouter(h *Handlers, health *HealthChecker, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", OrgHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOrg(opts.DefaultOrgID))

		r.Get("/leads/{leadID}/timeline", h.GetLeadTimeline)
		r.Get("/calendar/slots", h.GetDaySlots)
		r.Get("/calendar/load", h.GetMonthLoad)
		r.Get("/rulebook/check", h.GetActionCheck)
	})

	return r
}
