package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/Clark-Hu/movie-browser/internal/config"
	"github.com/Clark-Hu/movie-browser/internal/favorites"
	httpserver "github.com/Clark-Hu/movie-browser/internal/http"
	"github.com/Clark-Hu/movie-browser/internal/storage"
	"github.com/Clark-Hu/movie-browser/internal/tmdb"
)

type backend interface {
	favorites.Storage
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[movies-api] ", log.LstdFlags|log.Lshortfile)
	if cfg.TMDBAPIKey == "" {
		logger.Printf("WARNING: TMDB_API_KEY is not set; upstream calls will be rejected")
	}

	var (
		favs   *favorites.Store
		health httpserver.HealthChecker
	)
	if cfg.FavoritesBackend != config.BackendNone {
		st, err := openStorage(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("open %s favorites storage: %v", cfg.FavoritesBackend, err)
		}
		defer st.Close()
		if hc, ok := st.(httpserver.HealthChecker); ok {
			health = hc
		}

		favs = favorites.New(st, favorites.Options{Logger: logger})
		favs.Initialize(ctx)
		logger.Printf("favorites: %s backend, %d stored", cfg.FavoritesBackend, favs.Len())
	}

	gateway, err := tmdb.NewHTTPClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.TMDBLanguage, time.Duration(cfg.TMDBTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init tmdb client: %v", err)
	}

	server := httpserver.New(cfg, gateway, favs, logger)
	if health != nil {
		server.WithHealthCheck(health)
	}
	logStartup(logger, cfg, server)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("graceful shutdown error: %v", err)
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *log.Logger) (backend, error) {
	switch cfg.FavoritesBackend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendFile:
		return storage.NewFile(cfg.FavoritesPath, logger)
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.FavoritesPath, 0o755); err != nil {
			return nil, err
		}
		return storage.NewSQLite(filepath.Join(cfg.FavoritesPath, "favorites.db"), logger)
	case config.BackendPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pg, err := storage.NewPostgres(dbCtx, cfg.DBURL, storage.PostgresOptions{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(dbCtx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unsupported backend %q", cfg.FavoritesBackend)
}

func logStartup(logger *log.Logger, cfg config.Config, server *httpserver.Server) {
	logger.Printf("server running on port %s (%s mode)", cfg.Port, cfg.Env)
	logger.Printf("CORS allowed origins: %v", server.AllowedOrigins())

	endpoints := server.Endpoints()
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logger.Printf("  %-15s GET http://localhost:%s%s", name, cfg.Port, endpoints[name])
	}
}
