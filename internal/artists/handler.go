package artists

import (
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)

	write := rg.Group("", guards...)
	write.POST("", h.create)
	write.PATCH("/:id", h.update)
	write.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Name:    c.Query("name"),
		Country: c.Query("country"),
		Limit:   parseInt(c.Query("limit"), 0),
		Offset:  parseInt(c.Query("offset"), 0),
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("list artists")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
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
	a, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Int64("id", id).Msg("get artist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

type createReq struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	ImageURL string `json:"imageUrl"`
	Bio      string `json:"bio"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a := models.Artist{
		Name:     strings.TrimSpace(req.Name),
		Country:  strings.TrimSpace(req.Country),
		ImageURL: strings.TrimSpace(req.ImageURL),
		Bio:      strings.TrimSpace(req.Bio),
	}
	if a.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	created, err := h.Repo.Create(c.Request.Context(), a)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("create artist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.publish(sync.ArtistCreated, created.ID, created)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var p models.ArtistPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	for _, f := range []*string{p.Name, p.Country, p.ImageURL, p.Bio} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if p.Name != nil && *p.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	updated, err := h.Repo.Update(c.Request.Context(), id, p)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Int64("id", id).Msg("update artist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.publish(sync.ArtistUpdated, id, updated)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Int64("id", id).Msg("delete artist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.publish(sync.ArtistDeleted, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) publish(typ string, id int64, record any) {
	if h.Events != nil {
		h.Events.Publish(sync.NewEvent(typ, id, record))
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
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
