package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spinsoul/internal/discogs"
)

const apiTimeout = 15 * time.Second

// APIError is a response from the spinsoul proxy with ok:false.
type APIError struct {
	Status        int
	Message       string
	DiscogsStatus int
}

func (e *APIError) Error() string {
	return e.Message
}

// APIClient reaches Discogs through the spinsoul proxy endpoints, so the
// token stays on the server.
type APIClient struct {
	baseURL *url.URL
	http    *http.Client
}

var _ Source = (*APIClient)(nil)

func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: apiTimeout}
	}
	return &APIClient{baseURL: u, http: httpClient}, nil
}

type envelope struct {
	OK            bool   `json:"ok"`
	Error         string `json:"error"`
	DiscogsStatus int    `json:"discogsStatus"`
}

type searchResponse struct {
	envelope
	Results []discogs.SearchResult `json:"results"`
}

type releaseResponse struct {
	envelope
	ID       discogs.ID      `json:"id"`
	Title    string          `json:"title"`
	Artist   string          `json:"artist"`
	Year     json.RawMessage `json:"year"`
	Genres   []string        `json:"genres"`
	Styles   []string        `json:"styles"`
	CoverURL string          `json:"coverUrl"`
	Review   string          `json:"review"`
	Country  string          `json:"country"`
	Labels   []string        `json:"labels"`
}

func (c *APIClient) Search(ctx context.Context, q string) ([]discogs.SearchResult, error) {
	var resp searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {q}}, &resp, "Search failed"); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []discogs.SearchResult{}
	}
	return resp.Results, nil
}

func (c *APIClient) Release(ctx context.Context, id string) (discogs.ReleaseDetail, error) {
	var resp releaseResponse
	if err := c.get(ctx, "/release", url.Values{"id": {id}}, &resp, "Release fetch failed"); err != nil {
		return discogs.ReleaseDetail{}, err
	}

	d := discogs.ReleaseDetail{
		ID:                resp.ID,
		Title:             resp.Title,
		PrimaryArtistName: resp.Artist,
		Country:           resp.Country,
		Genres:            nonNil(resp.Genres),
		Styles:            nonNil(resp.Styles),
		CoverURL:          resp.CoverURL,
		LabelNames:        nonNil(resp.Labels),
		GeneratedSummary:  resp.Review,
	}
	// the proxy sends "" for an unknown year
	var year int
	if err := json.Unmarshal(resp.Year, &year); err == nil && year != 0 {
		d.Year = &year
	}
	return d, nil
}

type okResponse interface {
	result() envelope
}

func (e envelope) result() envelope { return e }

func (c *APIClient) get(ctx context.Context, path string, query url.Values, out okResponse, fallback string) error {
	target := c.baseURL.String() + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fallback + " (HTTP " + strconv.Itoa(resp.StatusCode) + ")"}
	}

	env := out.result()
	if !env.OK {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = fallback
		}
		return &APIError{Status: resp.StatusCode, Message: msg, DiscogsStatus: env.DiscogsStatus}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
