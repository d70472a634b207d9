package discogs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.discogs.com"
	DefaultUserAgent = "spinsoul/1.0"
	defaultTimeout   = 10 * time.Second
)

// Config is everything the client needs to talk to Discogs. It is built by
// the caller; the client never reads the environment.
type Config struct {
	Token     string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	PerPage   int
}

// Catalogue is the read side of Discogs used by the proxy handlers.
type Catalogue interface {
	HasToken() bool
	TokenLength() int
	Search(ctx context.Context, q string) ([]SearchResult, error)
	Release(ctx context.Context, id string) (ReleaseDetail, error)
}

var _ Catalogue = (*Client)(nil)

// Client performs authenticated GETs against the Discogs API. One call is
// one request: no retries and no caching.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
	perPage   int
}

// NewClient validates cfg and builds a Client. A missing token is not an
// error here; it is reported per request as ErrMissingToken so the health
// and proxy endpoints can answer with a configuration error.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse discogs base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("discogs base url %q must be absolute", base)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return &Client{
		baseURL:   u,
		http:      httpClient,
		token:     cfg.Token,
		userAgent: ua,
		perPage:   perPage,
	}, nil
}

func (c *Client) HasToken() bool {
	return c != nil && c.token != ""
}

// TokenLength lets the health endpoint prove a token is loaded without
// revealing it.
func (c *Client) TokenLength() int {
	if c == nil {
		return 0
	}
	return len(c.token)
}

// FetchJSON GETs path (already escaped) with query and returns the status
// and raw body. Non-2xx answers also return an *UpstreamError carrying the
// same status and body.
func (c *Client) FetchJSON(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	if !c.HasToken() {
		return 0, nil, ErrMissingToken
	}

	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("discogs: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("discogs: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("discogs: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, body, &UpstreamError{Status: resp.StatusCode, Body: body}
	}
	return resp.StatusCode, body, nil
}

// Search looks up releases matching q.
func (c *Client) Search(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, &ValidationError{Param: "q"}
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("type", "release")
	values.Set("per_page", strconv.Itoa(c.perPage))

	_, body, err := c.FetchJSON(ctx, "/database/search", values)
	if err != nil {
		return nil, err
	}
	return NormalizeSearch(body, c.perPage)
}

// Release fetches and normalizes a single release.
func (c *Client) Release(ctx context.Context, id string) (ReleaseDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ReleaseDetail{}, &ValidationError{Param: "id"}
	}

	_, body, err := c.FetchJSON(ctx, "/releases/"+url.PathEscape(id), nil)
	if err != nil {
		return ReleaseDetail{}, err
	}
	return NormalizeRelease(body)
}
