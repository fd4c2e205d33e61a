package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		// Device telemetry ingest. Field devices carry no user tokens;
		// registration is the gate, not authentication.
		r.Post("/ingest", s.handleIngest)

		// Public dashboard data (no auth required)
		r.Get("/public/locations", s.handlePublicLocations)
		r.Get("/location/{name}/capabilities", s.handleLocationCapabilities)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/devices/register", s.handleRegister)
			r.Get("/devices", s.handleListDevices)
			r.Delete("/devices/{deviceID}", s.handleUnlinkDevice)

			r.Get("/status", s.handleSystemStatus)
			r.Get("/locations/status", s.handleLocationsStatus)
			r.Get("/locations/{name}/status", s.handleLocationStatus)

			r.Get("/export/csv", s.handleExportCSV)
		})
	})

	// WebSocket subscriptions (auth via token query parameter,
	// validated in the handler)
	r.Get("/ws/live/{locationID}", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
