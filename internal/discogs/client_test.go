package discogs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{Token: token, BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestNewClient_RejectsRelativeBaseURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "api.discogs.com"}, nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}
	c, err := NewClient(Config{}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.baseURL.String() != DefaultBaseURL {
		t.Fatalf("baseURL = %q, want %q", c.baseURL.String(), DefaultBaseURL)
	}
}

func TestFetchJSON_SendsHeaders(t *testing.T) {
	var got http.Header
	var gotQuery url.Values
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"ok":1}`))
	})

	status, body, err := c.FetchJSON(context.Background(), "/database/search", url.Values{"q": {"daft punk"}})
	if err != nil {
		t.Fatalf("FetchJSON returned error: %v", err)
	}
	if status != http.StatusOK || string(body) != `{"ok":1}` {
		t.Fatalf("status/body = %d/%s", status, body)
	}
	if got.Get("User-Agent") != DefaultUserAgent {
		t.Fatalf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Authorization") != "Discogs token=secret" {
		t.Fatalf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/json" {
		t.Fatalf("Accept = %q", got.Get("Accept"))
	}
	if gotQuery.Get("q") != "daft punk" {
		t.Fatalf("q = %q", gotQuery.Get("q"))
	}
}

func TestFetchJSON_MissingTokenMakesNoRequest(t *testing.T) {
	called := false
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, _, err := c.FetchJSON(context.Background(), "/releases/1", nil)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
	if called {
		t.Fatalf("upstream was called without a token")
	}
}

func TestFetchJSON_PassesUpstreamErrorThrough(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "You are making requests too quickly."}`))
	})

	status, body, err := c.FetchJSON(context.Background(), "/releases/1", nil)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if status != http.StatusTooManyRequests || upstream.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d / %d, want 429", status, upstream.Status)
	}
	if string(upstream.Body) != string(body) || string(body) != `{"message": "You are making requests too quickly."}` {
		t.Fatalf("body not passed through verbatim: %s", upstream.Body)
	}
}

func TestSearch_BuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"results":[{"id":1,"title":"a"}]}`))
	})

	results, err := c.Search(context.Background(), "  nirvana nevermind ")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if gotPath != "/database/search" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery.Get("q") != "nirvana nevermind" || gotQuery.Get("type") != "release" || gotQuery.Get("per_page") != "10" {
		t.Fatalf("query = %v", gotQuery)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
}

func TestRelease_EscapesID(t *testing.T) {
	var gotRawPath string
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"id":1,"title":"a"}`))
	})

	if _, err := c.Release(context.Background(), "12/34"); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if gotRawPath != "/releases/12%2F34" {
		t.Fatalf("path = %q, want /releases/12%%2F34", gotRawPath)
	}
}

func TestRelease_ValidationBeforeNetwork(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call")
	})
	_, err := c.Release(context.Background(), " ")
	var invalid *ValidationError
	if !errors.As(err, &invalid) || invalid.Param != "id" {
		t.Fatalf("err = %v, want ValidationError{id}", err)
	}
}

func TestFetchJSON_HonoursContext(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := c.FetchJSON(ctx, "/releases/1", nil); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}
