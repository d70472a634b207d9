package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"spinsoul/pkg/database"
)

func newAuthRouter(t *testing.T) (*gin.Engine, TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "data.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "spinsoul", Duration: time.Hour}
	repo := NewRepo(db)
	r := gin.New()
	NewHandler(repo, tokens).RegisterRoutes(r.Group("/auth"))

	guarded := r.Group("/releases", WriteGuards(true, tokens, repo)...)
	guarded.POST("", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"by": MustGetClaims(c).Username})
	})
	return r, tokens
}

func post(r http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func tokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("no token in %s", rec.Body.String())
	}
	return body.Token
}

func TestRegisterLoginAndGuard(t *testing.T) {
	r, _ := newAuthRouter(t)

	rec := post(r, "/auth/register", "", map[string]string{
		"username": "crate-digger", "email": "Dig@Example.com", "password": "vinyl-only",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}

	if rec := post(r, "/auth/register", "", map[string]string{
		"username": "other", "email": "dig@example.com", "password": "vinyl-only",
	}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email status = %d", rec.Code)
	}

	if rec := post(r, "/auth/login", "", map[string]string{
		"email": "dig@example.com", "password": "wrong-pass",
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rec.Code)
	}

	rec = post(r, "/auth/login", "", map[string]string{"email": "dig@example.com", "password": "vinyl-only"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	token := tokenFrom(t, rec)

	if rec := post(r, "/releases", "", map[string]string{"title": "X"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if rec := post(r, "/releases", "not-a-jwt", map[string]string{"title": "X"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", rec.Code)
	}
	rec = post(r, "/releases", token, map[string]string{"title": "X"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("guarded status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	r, _ := newAuthRouter(t)

	token := tokenFrom(t, post(r, "/auth/register", "", map[string]string{
		"username": "curator", "email": "c@example.com", "password": "password1",
	}))

	if rec := post(r, "/auth/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := post(r, "/releases", token, map[string]string{"title": "X"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d", rec.Code)
	}
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	r, _ := newAuthRouter(t)

	token := tokenFrom(t, post(r, "/auth/register", "", map[string]string{
		"username": "curator", "email": "c@example.com", "password": "password1",
	}))

	if rec := post(r, "/auth/change-password", token, map[string]string{
		"old_password": "password1", "new_password": "password2",
	}); rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := post(r, "/releases", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old token status = %d", rec.Code)
	}
	if rec := post(r, "/auth/login", "", map[string]string{
		"email": "c@example.com", "password": "password2",
	}); rec.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d", rec.Code)
	}
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	ts := TokenService{Secret: []byte("a"), Issuer: "spinsoul", Duration: time.Minute}
	raw, _, err := ts.Sign(&Curator{ID: "id-1", Username: "u"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := ts.Parse(raw)
	if err != nil || claims.CuratorID != "id-1" {
		t.Fatalf("Parse = %+v, %v", claims, err)
	}

	other := ts
	other.Secret = []byte("b")
	if _, err := other.Parse(raw); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	other = ts
	other.Issuer = "someone-else"
	if _, err := other.Parse(raw); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	expired := ts
	expired.Duration = -time.Minute
	raw, _, _ = expired.Sign(&Curator{ID: "id-1"})
	if _, err := ts.Parse(raw); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestWriteGuardsDisabled(t *testing.T) {
	if g := WriteGuards(false, TokenService{}, nil); len(g) != 0 {
		t.Fatalf("WriteGuards(false) = %d handlers", len(g))
	}
}

func TestInviteOnlyRegistration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "data.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "spinsoul", Duration: time.Hour}
	repo := NewRepo(db)
	h := NewHandler(repo, tokens)
	h.InviteOnly = true
	r := gin.New()
	h.RegisterRoutes(r.Group("/auth"))

	first := post(r, "/auth/register", "", map[string]string{
		"username": "owner", "email": "o@example.com", "password": "password1",
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("bootstrap status = %d body=%s", first.Code, first.Body.String())
	}
	owner := tokenFrom(t, first)

	if rec := post(r, "/auth/register", "", map[string]string{
		"username": "stranger", "email": "s@example.com", "password": "password1",
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	if rec := post(r, "/auth/register", "not-a-jwt", map[string]string{
		"username": "stranger", "email": "s@example.com", "password": "password1",
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("garbage token status = %d", rec.Code)
	}
	// existing emails are not revealed to anonymous callers
	if rec := post(r, "/auth/register", "", map[string]string{
		"username": "copycat", "email": "o@example.com", "password": "password1",
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous duplicate status = %d", rec.Code)
	}

	if rec := post(r, "/auth/register", owner, map[string]string{
		"username": "friend", "email": "f@example.com", "password": "password1",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("invited status = %d body=%s", rec.Code, rec.Body.String())
	}
	if n, err := repo.Count(t.Context()); err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestCreateFirstOnlyOnce(t *testing.T) {
	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "data.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewRepo(db)

	ok, err := repo.CreateFirst(t.Context(), Curator{ID: "a", Username: "a", Email: "a@x", PasswordHash: "h"})
	if err != nil || !ok {
		t.Fatalf("first CreateFirst = %v, %v", ok, err)
	}
	ok, err = repo.CreateFirst(t.Context(), Curator{ID: "b", Username: "b", Email: "b@x", PasswordHash: "h"})
	if err != nil || ok {
		t.Fatalf("second CreateFirst = %v, %v", ok, err)
	}
}
