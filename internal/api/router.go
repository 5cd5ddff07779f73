package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emberhome/ember-core/internal/manager"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket sits outside the bearer-header group: browsers
		// cannot set headers on WebSocket dials, so the handler
		// validates the same JWT from a token query parameter.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/status", s.handleStatus)
			r.Get("/adapters", s.handleListAdapters)
			r.Get("/adapters/{id}", s.handleGetAdapter)

			// Thing endpoints
			r.Route("/things", func(r chi.Router) {
				r.Get("/", s.handleListThings)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetThing)

					r.Route("/properties", func(r chi.Router) {
						r.Get("/", s.handleListProperties)
						r.Get("/{name}", s.handleGetProperty)
						r.Put("/{name}", s.handleSetProperty)
					})
				})
			})

			// Pairing session endpoints (long-poll)
			r.Route("/pairing", func(r chi.Router) {
				r.Post("/", s.handleStartPairing)
				r.Delete("/", s.handleCancelPairing)
			})
			r.Route("/unpairing", func(r chi.Router) {
				r.Post("/", s.handleStartUnpairing)
				r.Delete("/", s.handleCancelUnpairing)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStatus returns gateway statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.manager.GetStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"adapters":       stats.Adapters,
		"things":         stats.Things,
		"session_active": stats.SessionActive,
	})
}

// handleListAdapters returns the registered adapters.
func (s *Server) handleListAdapters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"adapters": s.manager.Adapters(),
	})
}

// handleGetAdapter returns a single adapter by ID.
func (s *Server) handleGetAdapter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, ok := s.manager.Adapter(id)
	if !ok {
		writeNotFound(w, "adapter not found")
		return
	}
	writeJSON(w, http.StatusOK, manager.AdapterInfo{ID: a.ID(), Name: a.Name()})
}
