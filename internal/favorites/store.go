// Package favorites maintains the set of movies a user has liked and mirrors it
// to durable storage after every change.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Clark-Hu/movie-browser/internal/domain"
	"github.com/Clark-Hu/movie-browser/internal/storage"
)

// Storage is the durable backend the store mirrors its state into.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Options configures a Store.
type Options struct {
	// Key overrides the storage key. Defaults to domain.FavoritesKey.
	Key    string
	Logger *log.Logger
}

// Store is the single source of truth for favorited movies. Create one with New
// and hand it to every consumer; it is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	key     string
	logger  *log.Logger

	movies []domain.Movie
	ids    map[int]struct{}
	loaded bool

	subs    map[int]chan struct{}
	nextSub int
}

const storedSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "integer"}
		},
		"required": ["id"]
	}
}`

var storedLoader = gojsonschema.NewStringLoader(storedSchema)

// New returns an empty store backed by st. Call Initialize to hydrate it.
func New(st Storage, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	key := opts.Key
	if key == "" {
		key = domain.FavoritesKey
	}
	return &Store{
		storage: st,
		key:     key,
		logger:  logger,
		ids:     make(map[int]struct{}),
		subs:    make(map[int]chan struct{}),
	}
}

// Initialize hydrates the store from durable storage. Missing data yields an
// empty set. Corrupt data is logged, removed from storage and replaced by an
// empty set. Only the first call has any effect.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	payload, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("favorites: load failed, starting empty: %v", err)
		}
		return
	}

	movies, err := decodeStored(payload)
	if err != nil {
		s.logger.Printf("favorites: discarding corrupt stored value: %v", err)
		if err := s.storage.Remove(ctx, s.key); err != nil {
			s.logger.Printf("favorites: clear corrupt value failed: %v", err)
		}
		return
	}

	for _, m := range movies {
		if _, dup := s.ids[m.ID]; dup {
			continue
		}
		s.ids[m.ID] = struct{}{}
		s.movies = append(s.movies, m)
	}
	if len(s.movies) > 0 {
		s.notifyLocked()
	}
}

func decodeStored(payload []byte) ([]domain.Movie, error) {
	result, err := gojsonschema.Validate(storedLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}
	var movies []domain.Movie
	if err := json.Unmarshal(payload, &movies); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return movies, nil
}

// IsFavorite reports whether a movie with the id is in the set.
func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Favorites returns a copy of the set in insertion order.
func (s *Store) Favorites() []domain.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Movie, len(s.movies))
	copy(out, s.movies)
	return out
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies)
}

// Add appends movie unless its id is already present. It reports whether the
// set changed.
func (s *Store) Add(ctx context.Context, movie domain.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if !s.addLocked(movie) {
		return false
	}
	s.persistLocked(ctx)
	return true
}

// Remove drops the movie with the id if present. It reports whether the set
// changed.
func (s *Store) Remove(ctx context.Context, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if !s.removeLocked(id) {
		return false
	}
	s.persistLocked(ctx)
	return true
}

// Toggle removes movie if it is a favorite and adds it otherwise. It returns
// the new favorite state.
func (s *Store) Toggle(ctx context.Context, movie domain.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	favorite := true
	if s.removeLocked(movie.ID) {
		favorite = false
	} else {
		s.addLocked(movie)
	}
	s.persistLocked(ctx)
	return favorite
}

func (s *Store) addLocked(movie domain.Movie) bool {
	if _, ok := s.ids[movie.ID]; ok {
		return false
	}
	s.ids[movie.ID] = struct{}{}
	s.movies = append(s.movies, movie)
	return true
}

func (s *Store) removeLocked(id int) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	kept := make([]domain.Movie, 0, len(s.movies)-1)
	for _, m := range s.movies {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	s.movies = kept
	return true
}

// persistLocked writes the full set and notifies subscribers. Write failures
// are logged; the in-memory set stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	defer s.notifyLocked()

	movies := s.movies
	if movies == nil {
		movies = []domain.Movie{}
	}
	payload, err := json.Marshal(movies)
	if err != nil {
		s.logger.Printf("favorites: encode failed: %v", err)
		return
	}
	// A caller going away must not abort the write of an applied change.
	if err := s.storage.Set(context.WithoutCancel(ctx), s.key, payload); err != nil {
		s.logger.Printf("favorites: save failed: %v", err)
	}
}

// Subscribe returns a channel that receives a signal after every change and a
// function that cancels the subscription and closes the channel. Signals are
// coalesced, so a slow subscriber sees at least one signal after the latest
// change and should re-read the state.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
