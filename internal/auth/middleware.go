package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const CtxClaimsKey = "auth_claims"

// Middleware requires a valid bearer token whose version still matches the
// stored one. A nil repo skips the version check.
func Middleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, msg := bearerClaims(c, tokens, repo)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// bearerClaims returns the request's verified claims, or nil and the reason
// they were rejected.
func bearerClaims(c *gin.Context, tokens TokenService, repo *Repo) (*Claims, string) {
	h := c.GetHeader("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
		return nil, "missing bearer token"
	}

	claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejecting token")
		return nil, "invalid token"
	}
	if repo != nil {
		current, err := repo.TokenVersion(c.Request.Context(), claims.CuratorID)
		if err != nil || current != claims.TokenVersion {
			return nil, "invalid token"
		}
	}
	return claims, ""
}

// WriteGuards returns the handlers to put in front of catalogue writes:
// the auth middleware when enabled, nothing otherwise.
func WriteGuards(enabled bool, tokens TokenService, repo *Repo) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{Middleware(tokens, repo)}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
