package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed movies.json
var defaultMovies []byte

const (
	pageSize = 20
	maxPage  = 500
)

type catalog struct {
	movies []json.RawMessage
	byID   map[int]json.RawMessage
	titles []string
	apiKey string
}

type statusError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

func main() {
	var (
		port    = flag.String("port", "9098", "port to listen on")
		data    = flag.String("data", "", "path to a JSON array of movies (defaults to the built-in set)")
		apiKey  = flag.String("api-key", "", "require this api_key on every request")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	raw := defaultMovies
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			log.Fatalf("read mock data: %v", err)
		}
		raw = file
	}

	cat, err := loadCatalog(raw)
	if err != nil {
		log.Fatalf("parse mock data: %v", err)
	}
	cat.apiKey = *apiKey

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if *logReqs {
		r.Use(middleware.Logger)
	}
	r.Route("/3", func(r chi.Router) {
		r.Use(cat.requireKey)
		r.Get("/movie/popular", cat.handlePopular)
		r.Get("/search/movie", cat.handleSearch)
		r.Get("/movie/{id}", cat.handleDetails)
		r.Get("/movie/{id}/{resource}", cat.handleResource)
	})

	addr := ":" + *port
	log.Printf("mock tmdb listening on %s with %d movies; set TMDB_BASE_URL=http://localhost%s/3", addr, len(cat.movies), addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadCatalog(raw []byte) (*catalog, error) {
	var movies []json.RawMessage
	if err := json.Unmarshal(raw, &movies); err != nil {
		return nil, err
	}
	cat := &catalog{movies: movies, byID: make(map[int]json.RawMessage, len(movies))}
	for i, m := range movies {
		var head struct {
			ID    *int   `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(m, &head); err != nil || head.ID == nil {
			return nil, fmt.Errorf("movie %d: missing integer id", i)
		}
		cat.byID[*head.ID] = m
		cat.titles = append(cat.titles, strings.ToLower(head.Title))
	}
	return cat, nil
}

func (c *catalog) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.apiKey != "" && r.URL.Query().Get("api_key") != c.apiKey {
			writeJSON(w, http.StatusUnauthorized, statusError{StatusCode: 7, StatusMessage: "Invalid API key: You must be granted a valid key."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *catalog) handlePopular(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, c.movies)
}

func (c *catalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	matches := []json.RawMessage{}
	if query != "" {
		for i, title := range c.titles {
			if strings.Contains(title, query) {
				matches = append(matches, c.movies[i])
			}
		}
	}
	writePage(w, r, matches)
}

func (c *catalog) handleDetails(w http.ResponseWriter, r *http.Request) {
	movie, ok := c.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(movie)
}

func (c *catalog) handleResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.lookup(w, r); !ok {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	switch chi.URLParam(r, "resource") {
	case "credits":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "cast": []interface{}{}, "crew": []interface{}{}})
	case "videos":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "results": []interface{}{}})
	case "reviews", "similar":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "page": 1, "results": []interface{}{}, "total_pages": 0, "total_results": 0})
	default:
		notFound(w)
	}
}

func (c *catalog) lookup(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		notFound(w)
		return nil, false
	}
	movie, ok := c.byID[id]
	if !ok {
		notFound(w)
		return nil, false
	}
	return movie, true
}

func writePage(w http.ResponseWriter, r *http.Request, movies []json.RawMessage) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPage {
			writeJSON(w, http.StatusBadRequest, statusError{StatusCode: 22, StatusMessage: "Invalid page: Pages start at 1 and max at 500. They are expected to be an integer."})
			return
		}
		page = n
	}
	totalPages := (len(movies) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	results := []json.RawMessage{}
	if start < len(movies) {
		end := start + pageSize
		if end > len(movies) {
			end = len(movies)
		}
		results = movies[start:end]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":          page,
		"results":       results,
		"total_pages":   totalPages,
		"total_results": len(movies),
	})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, statusError{StatusCode: 34, StatusMessage: "The resource you requested could not be found."})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
