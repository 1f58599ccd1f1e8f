// Package moviesapi is a client of the movie-browser Proxy Service.
package moviesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/movie-browser/internal/domain"
)

// DefaultTimeout bounds every call to the Proxy Service.
const DefaultTimeout = 10 * time.Second

// ErrEmptyQuery is returned by SearchMovies for a blank query; no request is made.
var ErrEmptyQuery = errors.New("moviesapi: search query cannot be empty")

// Error is a failed Proxy Service call. Message is the text to show the user.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Client calls the Proxy Service over HTTP.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

// New returns a Client rooted at baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse proxy base url: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("proxy base url must be absolute: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: parsed,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// searchPage is the search response, which carries a success flag next to the page.
type searchPage struct {
	Success bool `json:"success"`
	domain.PageResult
}

func (c *Client) GetPopularMovies(ctx context.Context, page int) (*domain.PageResult, error) {
	var result domain.PageResult
	params := url.Values{"page": {strconv.Itoa(page)}}
	if err := c.get(ctx, "/movies/popular", params, &result, "Failed to fetch popular movies"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*domain.PageResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	var result searchPage
	params := url.Values{"q": {query}, "page": {strconv.Itoa(page)}}
	if err := c.get(ctx, "/movies/search", params, &result, "Failed to search movies"); err != nil {
		return nil, err
	}
	return &result.PageResult, nil
}

// GetMovieDetails returns the detail record exactly as the proxy sent it.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.get(ctx, "/movies/"+strconv.Itoa(id), nil, &result, "Failed to fetch movie details"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}, fallback string) error {
	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + path
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &Error{Message: fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Message: transportMessage(err, fallback), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: transportMessage(err, fallback), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: bodyMessage(body, fallback)}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &Error{Status: resp.StatusCode, Message: fallback, Err: err}
	}
	return nil
}

// bodyMessage prefers the proxy's "message" field over the fallback.
func bodyMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return fallback
}

func transportMessage(err error, fallback string) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
