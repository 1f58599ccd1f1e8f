package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-browser/internal/domain"
	"github.com/Clark-Hu/movie-browser/internal/tmdb"
)

func (s *Server) handlePopularMovies(w http.ResponseWriter, r *http.Request) error {
	page, err := parsePage(r.URL.Query().Get("page"))
	if err != nil {
		return err
	}
	s.logger.Printf("fetching popular movies - page: %d", page)

	result, err := s.gateway.PopularMovies(r.Context(), page)
	if err != nil {
		return failed("Failed to fetch popular movies", err)
	}
	s.logger.Printf("fetched %d popular movies", result.ResultCount())
	s.respondJSON(w, http.StatusOK, result)
	return nil
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) error {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		return badRequest("Search query is required", "Please provide a search query using the q parameter")
	}
	page, err := parsePage(r.URL.Query().Get("page"))
	if err != nil {
		return err
	}
	s.logger.Printf("searching movies - query: %q, page: %d", query, page)

	result, err := s.gateway.SearchMovies(r.Context(), query, page)
	if err != nil {
		return failed("Failed to search movies", err)
	}
	s.logger.Printf("found %d movies for query %q", result.ResultCount(), query)
	result["success"] = json.RawMessage("true")
	s.respondJSON(w, http.StatusOK, result)
	return nil
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) error {
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	details, err := s.gateway.MovieDetails(r.Context(), id)
	if err != nil {
		return failed("Failed to fetch movie details", err)
	}
	s.respondRaw(w, http.StatusOK, details)
	return nil
}

func (s *Server) handleMovieResource(w http.ResponseWriter, r *http.Request) error {
	resource := tmdb.Resource(chi.URLParam(r, "resource"))
	if !resource.Valid() {
		s.handleNotFound(w, r)
		return nil
	}
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	payload, err := s.gateway.MovieResource(r.Context(), id, resource)
	if err != nil {
		return failed(fmt.Sprintf("Failed to fetch movie %s", resource), err)
	}
	s.respondRaw(w, http.StatusOK, payload)
	return nil
}

// parsePage defaults to 1 and accepts 1..domain.MaxTotalPages.
func parsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || page > domain.MaxTotalPages {
		return 0, badRequest("Invalid page", fmt.Sprintf("page must be an integer between 1 and %d", domain.MaxTotalPages))
	}
	return page, nil
}

func parseMovieID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid movie id", "movie id must be a positive integer")
	}
	return id, nil
}
