package releases

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spinsoul/internal/sync"
	"spinsoul/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Events sync.Publisher
}

func NewHandler(repo *Repo, events sync.Publisher) *Handler {
	return &Handler{Repo: repo, Events: events}
}

// RegisterRoutes mounts the collection on rg. guards run in front of the
// write routes only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.GET("", h.list)        // GET /releases
	rg.GET("/:id", h.getByID) // GET /releases/:id

	rg.POST("", with(guards, h.create)...)
	rg.PATCH("/:id", with(guards, h.update)...)
	rg.DELETE("/:id", with(guards, h.delete)...)
}

func with(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	return append(append(out, guards...), h)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Genre:  c.Query("genre"),
		Q:      c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if raw := strings.TrimSpace(c.Query("artistId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artistId"})
			return
		}
		q.ArtistID = &id
	}
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		q.Year = &y
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		h.internal(c, "count failed", err)
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.internal(c, "list failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rel, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.internal(c, "get failed", err)
		return
	}
	if rel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rel)
}

type createReq struct {
	ArtistID *int64 `json:"artistId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Year     *int   `json:"year"`
	Genre    string `json:"genre"`
	CoverURL string `json:"coverUrl"`
	Rating   int    `json:"rating"`
	Review   string `json:"review"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rel := models.Release{
		ArtistID: req.ArtistID,
		Title:    strings.TrimSpace(req.Title),
		Artist:   strings.TrimSpace(req.Artist),
		Year:     req.Year,
		Genre:    strings.TrimSpace(req.Genre),
		CoverURL: strings.TrimSpace(req.CoverURL),
		Rating:   req.Rating,
		Review:   strings.TrimSpace(req.Review),
	}
	if rel.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	if msg := validate(rel.Year, &rel.Rating); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !h.checkArtist(c, rel.ArtistID) {
		return
	}

	created, err := h.Repo.Create(c.Request.Context(), rel)
	if err != nil {
		h.internal(c, "create failed", err)
		return
	}

	h.publish(sync.ReleaseCreated, created.ID, created)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var p models.ReleasePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	trim(p.Title, p.Artist, p.Genre, p.CoverURL, p.Review)
	if p.Title != nil && *p.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	if msg := validate(p.Year, p.Rating); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !h.checkArtist(c, p.ArtistID) {
		return
	}

	updated, err := h.Repo.Update(c.Request.Context(), id, p)
	if err != nil {
		h.internal(c, "update failed", err)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.ReleaseUpdated, updated.ID, updated)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.internal(c, "delete failed", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.ReleaseDeleted, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) checkArtist(c *gin.Context, id *int64) bool {
	if id == nil {
		return true
	}
	exists, err := h.Repo.ArtistExists(c.Request.Context(), *id)
	if err != nil {
		h.internal(c, "artist lookup failed", err)
		return false
	}
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown artistId"})
		return false
	}
	return true
}

func (h *Handler) publish(typ string, id int64, record any) {
	if h.Events == nil {
		return
	}
	h.Events.Publish(sync.NewEvent(typ, id, record))
}

func (h *Handler) internal(c *gin.Context, msg string, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func validate(year *int, rating *int) string {
	if year != nil && (*year < models.MinYear || *year > models.MaxYear) {
		return fmt.Sprintf("year must be between %d and %d", models.MinYear, models.MaxYear)
	}
	if rating != nil && (*rating < models.MinRating || *rating > models.MaxRating) {
		return fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return ""
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
