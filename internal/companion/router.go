package companion

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 2 * time.Second

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/save-svg", s.handleSaveSVG)

		if s.journal != nil {
			r.Route("/presses", func(r chi.Router) {
				r.Get("/", s.handleListPresses)
				r.Get("/{id}", s.handleGetPress)
			})
		}
	})

	return r
}

// handleHealth reports every configured component check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	status, code := "ok", http.StatusOK

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()

		if err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
