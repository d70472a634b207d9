package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	// InviteOnly closes self-registration once the first curator exists;
	// further accounts must be registered with a curator's token.
	InviteOnly bool
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)

	authed := rg.Group("", Middleware(h.Tokens, h.Repo))
	authed.GET("/me", h.me)
	authed.POST("/change-password", h.changePassword)
	authed.POST("/logout", h.logout)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 3-30 chars"})
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Email) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	// bcrypt ignores bytes past 72
	if len(req.Password) < 8 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	ctx := c.Request.Context()
	bootstrap, ok := h.mayRegister(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "registration requires a curator token"})
		return
	}

	if existing, _ := h.Repo.GetByEmail(ctx, req.Email); existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}
	if existing, _ := h.Repo.GetByUsername(ctx, req.Username); existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	cur := Curator{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if bootstrap {
		// another first curator may have won the race since mayRegister
		created, err := h.Repo.CreateFirst(ctx, cur)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("create curator")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create curator failed"})
			return
		}
		if !created {
			c.JSON(http.StatusForbidden, gin.H{"error": "registration requires a curator token"})
			return
		}
	} else if err := h.Repo.Create(ctx, cur); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("create curator")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create curator failed"})
		return
	}

	zerolog.Ctx(ctx).Info().Str("curator", cur.Username).Msg("curator registered")
	h.respondWithToken(c, http.StatusCreated, &cur)
}

// mayRegister decides whether the request may create a curator. With
// InviteOnly set, a valid curator token is required unless no curator exists
// yet; bootstrap reports that the latter case applies.
func (h *Handler) mayRegister(c *gin.Context) (bootstrap, ok bool) {
	if !h.InviteOnly {
		return false, true
	}
	if inviter, _ := bearerClaims(c, h.Tokens, h.Repo); inviter != nil {
		zerolog.Ctx(c.Request.Context()).Info().Str("invited_by", inviter.Username).Msg("curator invite")
		return false, true
	}
	n, err := h.Repo.Count(c.Request.Context())
	if err != nil || n > 0 {
		return false, false
	}
	return true, true
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	cur, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || cur == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cur.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, cur)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, cur *Curator) {
	token, exp, err := h.Tokens.Sign(cur)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(status, gin.H{
		"curator": gin.H{
			"id":       cur.ID,
			"username": cur.Username,
			"email":    cur.Email,
		},
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"id":       claims.CuratorID,
		"username": claims.Username,
	})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old and new password required"})
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	ctx := c.Request.Context()
	cur, err := h.Repo.GetByID(ctx, MustGetClaims(c).CuratorID)
	if err != nil || cur == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cur.PasswordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	if err := h.Repo.UpdatePassword(ctx, cur.ID, string(hash)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("update password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// logout invalidates every token issued to the curator so far.
func (h *Handler) logout(c *gin.Context) {
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), MustGetClaims(c).CuratorID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
