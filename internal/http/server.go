package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/movie-browser/internal/config"
	"github.com/Clark-Hu/movie-browser/internal/favorites"
	"github.com/Clark-Hu/movie-browser/internal/tmdb"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	gateway   tmdb.Client
	favorites *favorites.Store
	health    HealthChecker
	logger    *log.Logger
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes. A nil
// favorites store leaves the /favorites routes unmounted.
func New(cfg config.Config, gateway tmdb.Client, favs *favorites.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:       cfg,
		gateway:   gateway,
		favorites: favs,
		logger:    logger,
		router:    chi.NewRouter(),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(s.recoverPanic)
	s.router.Use(s.cors())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/popular", s.handle(s.handlePopularMovies))
		r.Get("/search", s.handle(s.handleSearchMovies))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handle(s.handleMovieDetails))
			r.Get("/{resource}", s.handle(s.handleMovieResource))
		})
	})

	if s.favorites == nil {
		return
	}
	s.router.Route("/favorites", func(r chi.Router) {
		r.Get("/", s.handle(s.handleListFavorites))
		r.Post("/", s.handle(s.handleAddFavorite))
		r.Post("/toggle", s.handle(s.handleToggleFavorite))
		r.Get("/events", s.handleFavoriteEvents)
		r.Get("/{id}", s.handle(s.handleGetFavorite))
		r.Delete("/{id}", s.handle(s.handleRemoveFavorite))
	})
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
