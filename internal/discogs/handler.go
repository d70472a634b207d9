package discogs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	Client Catalogue
}

func NewHandler(client Catalogue) *Handler {
	return &Handler{Client: client}
}

// RegisterRoutes mounts the proxy endpoints. Search and release accept any
// method so that non-GET requests get the JSON 405 rather than gin's 404.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/search", h.search)   // GET /search?q=
	rg.Any("/release", h.release) // GET /release?id=
	rg.GET("/health", h.health)
}

// RegisterLegacyRoutes mounts the same handlers under the serverless-style
// names older frontends still call.
func (h *Handler) RegisterLegacyRoutes(rg *gin.RouterGroup) {
	rg.Any("/discogs-search", h.search)
	rg.Any("/discogs-release", h.release)
	rg.GET("/ping", h.health)
}

// guard runs the checks shared by both proxy endpoints, in order: token,
// method, required parameter. It returns the trimmed parameter value.
func (h *Handler) guard(c *gin.Context, param string) (string, bool) {
	if !h.Client.HasToken() {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Missing DISCOGS_TOKEN"})
		return "", false
	}
	if c.Request.Method != http.MethodGet {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "Method not allowed"})
		return "", false
	}
	v := strings.TrimSpace(c.Query(param))
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing query param: " + param})
		return "", false
	}
	return v, true
}

func (h *Handler) search(c *gin.Context) {
	q, ok := h.guard(c, "q")
	if !ok {
		return
	}

	results, err := h.Client.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "q": q, "results": results})
}

func (h *Handler) release(c *gin.Context) {
	id, ok := h.guard(c, "id")
	if !ok {
		return
	}

	d, err := h.Client.Release(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	var year any = ""
	if d.Year != nil {
		year = *d.Year
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"id":       d.ID,
		"title":    d.Title,
		"artist":   d.PrimaryArtistName,
		"year":     year,
		"genres":   d.Genres,
		"styles":   d.Styles,
		"coverUrl": d.CoverURL,
		"review":   d.GeneratedSummary,
		"country":  d.Country,
		"labels":   d.LabelNames,
	})
}

func (h *Handler) health(c *gin.Context) {
	if !h.Client.HasToken() {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "NO TOKEN FOUND"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tokenLength": h.Client.TokenLength()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	log := zerolog.Ctx(c.Request.Context())

	var upstream *UpstreamError
	var invalid *ValidationError
	switch {
	case errors.As(err, &upstream):
		log.Warn().Int("discogs_status", upstream.Status).Str("path", c.Request.URL.Path).Msg("discogs returned an error")
		c.JSON(upstream.Status, gin.H{
			"ok":              false,
			"discogsStatus":   upstream.Status,
			"discogsResponse": rawOrText(upstream.Body),
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing query param: " + invalid.Param})
	case errors.Is(err, ErrMissingToken):
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Missing DISCOGS_TOKEN"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("discogs proxy failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}

// rawOrText passes a JSON body through untouched and wraps anything else
// as a string.
func rawOrText(body []byte) any {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
