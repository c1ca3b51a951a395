package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Masterjii/CodesForTomorrow/internal/auth"
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

	// Public routes
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metricsHandler())
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/logout", s.handleLogout)
		r.Get("/profile", s.handleProfile)
		r.Get("/common", s.handleCommon)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin))
			r.Get("/admin-only", s.handleAdminOnly)
		})

		r.Post("/createResources", s.handleCreateResource)
		r.Get("/getResources", s.handleListResources)
		r.Put("/updateResources/{id}", s.handleUpdateResource)

		// WebSocket handshake re-validates the token itself so query
		// param auth works for browser clients.
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
