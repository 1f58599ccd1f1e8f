package httpserver

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is implemented by storage backends that can report whether
// they are reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type rootResponse struct {
	Message       string            `json:"message"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation string            `json:"documentation"`
}

// Endpoints lists the public routes, keyed by a short name.
func (s *Server) Endpoints() map[string]string {
	eps := map[string]string{
		"health":        "/health",
		"popularMovies": "/movies/popular?page=1",
		"searchMovies":  "/movies/search?q=query&page=1",
		"movieDetails":  "/movies/{id}",
		"movieCredits":  "/movies/{id}/credits",
		"movieVideos":   "/movies/{id}/videos",
		"movieReviews":  "/movies/{id}/reviews",
		"similarMovies": "/movies/{id}/similar",
	}
	if s.favorites != nil {
		eps["favorites"] = "/favorites"
		eps["toggleFavorite"] = "/favorites/toggle"
		eps["favoriteEvents"] = "/favorites/events"
	}
	return eps
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, rootResponse{
		Message:       "Welcome to the Movie App API",
		Endpoints:     s.Endpoints(),
		Documentation: "Check the API documentation for more details",
	})
}

// WithHealthCheck makes /health probe hc. Call it before Start.
func (s *Server) WithHealthCheck(hc HealthChecker) *Server {
	s.health = hc
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Printf("health check failed: %v", err)
			s.respondJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:   "Service Unavailable",
				Message: "Favorites storage is unavailable",
				Stack:   s.diagnostic(err.Error()),
			})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "Server is running"})
}
