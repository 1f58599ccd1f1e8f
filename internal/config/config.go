package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Operating modes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Favorites storage backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	Env                string
	TMDBAPIKey         string
	TMDBBaseURL        string
	TMDBLanguage       string
	TMDBTimeoutSecs    int
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	CORSAllowedOrigins []string
	FavoritesBackend   string
	FavoritesPath      string
	DBURL              string
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
}

// Load reads configuration from environment variables, applying defaults and validation.
// A missing TMDB_API_KEY is not an error; callers warn about it at startup.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		Env:                strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		TMDBAPIKey:         os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:       getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBTimeoutSecs:    getEnvInt("TMDB_TIMEOUT_SECS", 10),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		FavoritesBackend:   strings.ToLower(getEnv("FAVORITES_BACKEND", BackendNone)),
		FavoritesPath:      getEnv("FAVORITES_PATH", "data"),
		DBURL:              os.Getenv("DB_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 1),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction)
	}
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 0 || port > 65535 {
		return Config{}, fmt.Errorf("PORT must be a valid port number")
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}

	switch cfg.FavoritesBackend {
	case BackendNone, BackendMemory:
	case BackendFile, BackendSQLite:
		if cfg.FavoritesPath == "" {
			return Config{}, fmt.Errorf("FAVORITES_PATH is required for the %s backend", cfg.FavoritesBackend)
		}
	case BackendPostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required for the postgres backend")
		}
		if cfg.DBMaxConns <= 0 {
			return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
		}
		if cfg.DBMinConns < 0 {
			return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
		}
		if cfg.DBMinConns > cfg.DBMaxConns {
			return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
		}
		if cfg.DBStatementCache < 0 {
			return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
		}
	default:
		return Config{}, fmt.Errorf("FAVORITES_BACKEND %q is not supported", cfg.FavoritesBackend)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
