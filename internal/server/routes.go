package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/auth"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Public routes
	r.Get("/health", s.health)
	r.Post("/login", s.login)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.authSecret(), func(w http.ResponseWriter, message string) {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
		}))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Patch("/", s.renameSession)
				r.Delete("/", s.deleteSession)

				r.Post("/turn", s.runTurn) // Streaming response
			})
		})

		// Event streaming (SSE)
		r.Get("/event", s.allEvents)
	})
}
