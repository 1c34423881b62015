package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the chi router with all routes and middleware configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContext)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/followups", func(fu chi.Router) {
			fu.Post("/", s.handleCreateFollowUp)
			fu.Get("/", s.handleListFollowUps)
			fu.Get("/due", s.handleListDueFollowUps)
			fu.Put("/{id}/snooze", s.handleSnoozeFollowUp)
			fu.Put("/{id}/dismiss", s.handleDismissFollowUp)
			fu.Put("/{id}/complete", s.handleCompleteFollowUp)
		})

		api.Route("/dashboard", func(d chi.Router) {
			d.Get("/stats", s.handleDashboardStats)
			d.Get("/next-actions", s.handleNextActions)
		})

		api.Post("/rollup", s.handleRollup)

		api.Route("/clients", func(c chi.Router) {
			c.Post("/", s.handleCreateClient)
			c.Get("/{id}", s.handleGetClient)
			c.Put("/{id}", s.handleUpdateClient)
			c.Get("/{id}/activity", s.handleClientActivity)
		})
	})

	return r
}
