package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MaxTotalPages is the highest page count the Gateway will serve for a listing.
const MaxTotalPages = 500

// FavoritesKey is the durable storage key holding the serialized favorites set.
const FavoritesKey = "movieFavorites"

// ErrInvalidMovie reports a movie document that cannot be decoded.
var ErrInvalidMovie = errors.New("invalid movie")

// Movie is a movie record as received from the Gateway. Fields the system does
// not interpret are kept in Extra so that a stored copy round-trips unchanged.
type Movie struct {
	ID          int
	Title       string
	Overview    string
	PosterPath  *string
	ReleaseDate *string
	VoteAverage float64
	Extra       map[string]json.RawMessage

	// present records which optional fields the source document carried.
	present fieldSet
}

type fieldSet uint8

const (
	hasTitle fieldSet = 1 << iota
	hasOverview
	hasPosterPath
	hasReleaseDate
	hasVoteAverage
)

var knownMovieFields = map[string]struct{}{
	"id": {}, "title": {}, "overview": {}, "poster_path": {}, "release_date": {}, "vote_average": {},
}

// UnmarshalJSON decodes the known fields and retains everything else.
func (m *Movie) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: expected object", ErrInvalidMovie)
	}
	idRaw, ok := raw["id"]
	if !ok {
		return fmt.Errorf("%w: missing id", ErrInvalidMovie)
	}

	var out Movie
	if err := json.Unmarshal(idRaw, &out.ID); err != nil {
		return fmt.Errorf("%w: id: %v", ErrInvalidMovie, err)
	}
	fields := []struct {
		key  string
		flag fieldSet
		dst  interface{}
	}{
		{"title", hasTitle, &out.Title},
		{"overview", hasOverview, &out.Overview},
		{"poster_path", hasPosterPath, &out.PosterPath},
		{"release_date", hasReleaseDate, &out.ReleaseDate},
		{"vote_average", hasVoteAverage, &out.VoteAverage},
	}
	for _, f := range fields {
		val, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(val, f.dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidMovie, f.key, err)
		}
		out.present |= f.flag
	}
	for key, val := range raw {
		if _, known := knownMovieFields[key]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = val
	}
	*m = out
	return nil
}

// MarshalJSON writes the retained extras, the id, and each known field that was
// present in the decoded document or has been set since. Nothing absent from
// the source is invented.
func (m Movie) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(m.Extra)+len(knownMovieFields))
	for key, val := range m.Extra {
		obj[key] = val
	}
	obj["id"] = m.ID
	if m.present&hasTitle != 0 || m.Title != "" {
		obj["title"] = m.Title
	}
	if m.present&hasOverview != 0 || m.Overview != "" {
		obj["overview"] = m.Overview
	}
	if m.present&hasPosterPath != 0 || m.PosterPath != nil {
		obj["poster_path"] = m.PosterPath
	}
	if m.present&hasReleaseDate != 0 || m.ReleaseDate != nil {
		obj["release_date"] = m.ReleaseDate
	}
	if m.present&hasVoteAverage != 0 || m.VoteAverage != 0 {
		obj["vote_average"] = m.VoteAverage
	}
	return json.Marshal(obj)
}

// PageResult is the typed view of a listing or search page, for consumers
// of the Proxy Service.
type PageResult struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// ErrInvalidPage reports a listing body that is not a JSON object.
var ErrInvalidPage = errors.New("invalid page")

// Page is a listing or search page exactly as the Gateway sent it. Only
// total_pages is ever rewritten; movies and unknown keys pass through untouched.
type Page map[string]json.RawMessage

// DecodePage parses a Gateway listing body.
func DecodePage(body []byte) (Page, error) {
	var p Page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: expected object", ErrInvalidPage)
	}
	return p, nil
}

// CapTotalPages clamps a numeric total_pages to MaxTotalPages.
func (p Page) CapTotalPages() {
	raw, ok := p["total_pages"]
	if !ok {
		return
	}
	var total float64
	if err := json.Unmarshal(raw, &total); err != nil {
		return
	}
	if total > MaxTotalPages {
		p["total_pages"] = json.RawMessage(strconv.Itoa(MaxTotalPages))
	}
}

// ResultCount returns the length of the results array, or 0 when it is
// missing or not an array.
func (p Page) ResultCount() int {
	var results []json.RawMessage
	if err := json.Unmarshal(p["results"], &results); err != nil {
		return 0
	}
	return len(results)
}
