package httpserver

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/cors"
)

// logRequests writes one access-log line per request once it has finished.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Printf("%s %s - %d - %dms", r.Method, r.URL.RequestURI(), m.Code, m.Duration.Milliseconds())
	})
}

// cors allows any origin in development. In production only the configured
// origins (wildcards such as https://*.example.app included) are accepted.
func (s *Server) cors() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	// The cors package treats an empty list as "allow all".
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}

func (s *Server) allowedOrigins() []string {
	if !s.cfg.IsProduction() {
		return []string{"*"}
	}
	return s.cfg.CORSAllowedOrigins
}

// AllowedOrigins reports the effective CORS origins, for startup logging.
func (s *Server) AllowedOrigins() []string {
	return s.allowedOrigins()
}
