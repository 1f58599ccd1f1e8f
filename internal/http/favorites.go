package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-browser/internal/domain"
)

const eventsHeartbeat = 15 * time.Second

type favoritesResponse struct {
	Results      []domain.Movie `json:"results"`
	TotalResults int            `json:"total_results"`
}

type favoriteStateResponse struct {
	ID       int  `json:"id"`
	Favorite bool `json:"favorite"`
}

func (s *Server) favoritesSnapshot() favoritesResponse {
	movies := s.favorites.Favorites()
	return favoritesResponse{Results: movies, TotalResults: len(movies)}
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) error {
	s.respondJSON(w, http.StatusOK, s.favoritesSnapshot())
	return nil
}

func (s *Server) handleGetFavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	s.respondJSON(w, http.StatusOK, favoriteStateResponse{ID: id, Favorite: s.favorites.IsFavorite(id)})
	return nil
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) error {
	var movie domain.Movie
	if err := decodeJSONBody(w, r, &movie); err != nil {
		return err
	}
	if movie.ID <= 0 {
		return badRequest("Invalid movie id", "movie id must be a positive integer")
	}

	status := http.StatusOK
	if s.favorites.Add(r.Context(), movie) {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, favoriteStateResponse{ID: movie.ID, Favorite: true})
	return nil
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) error {
	var movie domain.Movie
	if err := decodeJSONBody(w, r, &movie); err != nil {
		return err
	}
	if movie.ID <= 0 {
		return badRequest("Invalid movie id", "movie id must be a positive integer")
	}

	favorite := s.favorites.Toggle(r.Context(), movie)
	s.respondJSON(w, http.StatusOK, favoriteStateResponse{ID: movie.ID, Favorite: favorite})
	return nil
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	s.favorites.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleFavoriteEvents streams the full favorites set as server-sent events:
// once on connect and again after every change.
func (s *Server) handleFavoriteEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondFailure(w, r, fmt.Errorf("streaming unsupported by response writer"))
		return
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Printf("favorites events: clear write deadline: %v", err)
	}

	changes, cancel := s.favorites.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := s.writeFavoritesEvent(w); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(eventsHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-changes:
			if !open {
				return
			}
			if err := s.writeFavoritesEvent(w); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func (s *Server) writeFavoritesEvent(w http.ResponseWriter) error {
	payload, err := json.Marshal(s.favoritesSnapshot())
	if err != nil {
		s.logger.Printf("favorites events: encode: %v", err)
		return err
	}
	_, err = fmt.Fprintf(w, "event: favorites\ndata: %s\n\n", payload)
	return err
}
