package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/movie-browser/internal/domain"
)

// DefaultBaseURL is the public TMDB v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// DefaultTimeout bounds every Gateway call.
const DefaultTimeout = 10 * time.Second

const (
	maxErrorBody   = 64 << 10
	maxSuccessBody = 8 << 20
)

// ErrEmptyQuery is returned by SearchMovies for a blank query; no request is made.
var ErrEmptyQuery = errors.New("tmdb: search query is required")

// Resource names a per-movie sub-resource.
type Resource string

const (
	ResourceCredits Resource = "credits"
	ResourceVideos  Resource = "videos"
	ResourceReviews Resource = "reviews"
	ResourceSimilar Resource = "similar"
)

// Valid reports whether r is one of the known sub-resources.
func (r Resource) Valid() bool {
	switch r {
	case ResourceCredits, ResourceVideos, ResourceReviews, ResourceSimilar:
		return true
	}
	return false
}

// Client defines the contract for querying the movie-metadata Gateway.
type Client interface {
	PopularMovies(ctx context.Context, page int) (domain.Page, error)
	SearchMovies(ctx context.Context, query string, page int) (domain.Page, error)
	MovieDetails(ctx context.Context, id int) (json.RawMessage, error)
	MovieResource(ctx context.Context, id int, resource Resource) (json.RawMessage, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL  *url.URL
	apiKey   string
	language string
	timeout  time.Duration
	client   *http.Client
	logger   *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed Gateway client.
func NewHTTPClient(baseURL, apiKey, language string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse tmdb url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL:  parsed,
		apiKey:   apiKey,
		language: language,
		timeout:  timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// PopularMovies returns one page of the popular listing as the Gateway sent
// it, with total_pages capped.
func (c *HTTPClient) PopularMovies(ctx context.Context, page int) (domain.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(normalizePage(page)))
	return c.getPage(ctx, "/movie/popular", params)
}

// SearchMovies returns one page of movies matching query.
func (c *HTTPClient) SearchMovies(ctx context.Context, query string, page int) (domain.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(normalizePage(page)))
	return c.getPage(ctx, "/search/movie", params)
}

// MovieDetails returns the Gateway's detail document verbatim.
func (c *HTTPClient) MovieDetails(ctx context.Context, id int) (json.RawMessage, error) {
	return c.get(ctx, "/movie/"+strconv.Itoa(id), nil)
}

// MovieResource returns a per-movie sub-resource verbatim.
func (c *HTTPClient) MovieResource(ctx context.Context, id int, resource Resource) (json.RawMessage, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("tmdb: unknown resource %q", resource)
	}
	return c.get(ctx, fmt.Sprintf("/movie/%d/%s", id, resource), nil)
}

func (c *HTTPClient) getPage(ctx context.Context, path string, params url.Values) (domain.Page, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	page, err := domain.DecodePage(body)
	if err != nil {
		c.logger.Printf("tmdb: malformed page from %s: %v", path, err)
		return nil, &Error{
			Status:  http.StatusInternalServerError,
			Message: "malformed upstream response",
			Err:     fmt.Errorf("decode %s: %w", path, err),
		}
	}
	page.CapTotalPages()
	return page, nil
}

// get performs the request and returns the body once it is known to be JSON.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + path
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: "failed to build upstream request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Printf("tmdb: close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := statusMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Printf("tmdb: unexpected status %d for %s: %s", resp.StatusCode, path, msg)
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSuccessBody))
	if err != nil {
		return nil, c.transportError(path, err)
	}
	if !json.Valid(body) {
		c.logger.Printf("tmdb: invalid JSON from %s", path)
		return nil, &Error{Status: http.StatusInternalServerError, Message: "malformed upstream response"}
	}
	return json.RawMessage(body), nil
}

// transportError converts a failed round trip. The request URL carries the
// credential, so *url.Error is unwrapped before the error is kept.
func (c *HTTPClient) transportError(path string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Printf("tmdb: request to %s timed out after %s", path, c.timeout)
		return &Error{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("timeout of %s exceeded", c.timeout),
			Timeout: true,
			Err:     err,
		}
	}
	c.logger.Printf("tmdb: request to %s failed: %v", path, err)
	return &Error{Status: http.StatusInternalServerError, Message: "failed to reach the movie database", Err: err}
}

func statusMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.StatusMessage)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// PosterURL returns an absolute image URL for a poster path, or a placeholder
// when the movie has no poster.
func PosterURL(posterPath *string, size string) string {
	if posterPath == nil || *posterPath == "" {
		return "https://via.placeholder.com/500x750?text=No+Image"
	}
	if size == "" {
		size = "w500"
	}
	return "https://image.tmdb.org/t/p/" + size + *posterPath
}
