package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"spinsoul/internal/importer"
	"spinsoul/pkg/models"
)

type tokenData struct {
	Token string `json:"token"`
}

// api talks to a running spinsoul server.
type api struct {
	baseURL string
	client  *http.Client
	token   string
}

type releaseList struct {
	Total int              `json:"total"`
	Items []models.Release `json:"items"`
}

type artistList struct {
	Items []models.Artist `json:"items"`
}

func (a *api) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	endpoint := strings.TrimRight(a.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed (%d): %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// saveRelease stores an imported prefill with the given rating.
func (a *api) saveRelease(ctx context.Context, p importer.RecordPrefill, rating int) (*models.Release, error) {
	payload := map[string]any{
		"title":    p.Title,
		"artist":   p.Artist,
		"year":     p.Year,
		"genre":    p.Genre,
		"coverUrl": p.CoverURL,
		"review":   p.Review,
		"rating":   rating,
	}
	var rel models.Release
	if err := a.doJSON(ctx, http.MethodPost, "/releases", payload, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (a *api) listReleases(ctx context.Context, filters url.Values) (releaseList, error) {
	var out releaseList
	path := "/releases"
	if len(filters) > 0 {
		path += "?" + filters.Encode()
	}
	err := a.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.spinsoul-token.json"
	}
	return filepath.Join(home, ".spinsoul", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// readToken returns "" when no token has been saved; writes then fail with
// the server's 401 if auth is enabled.
func readToken(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return ""
	}
	return strings.TrimSpace(td.Token)
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}
