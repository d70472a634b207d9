// Command discogs-mock serves canned Discogs API answers so the proxy and
// the import flow can be exercised offline. Point DISCOGS_BASE_URL at it.
package main

import (
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spinsoul/pkg/logging"
	"spinsoul/pkg/utils"
)

//go:embed fixtures
var builtin embed.FS

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dir := flag.String("data", "", "fixture directory (search.json, releases/<id>.json); built-in fixtures when empty")
	flag.Parse()

	log := logging.New(utils.LogConfig{Level: "info", Pretty: true})

	var fixtures fs.FS
	if *dir != "" {
		fixtures = os.DirFS(*dir)
	} else {
		sub, err := fs.Sub(builtin, "fixtures")
		if err != nil {
			log.Fatal().Err(err).Msg("fixtures")
		}
		fixtures = sub
	}

	gin.SetMode(gin.ReleaseMode)
	log.Info().Str("addr", *addr).Msg("discogs-mock listening")
	if err := http.ListenAndServe(*addr, newRouter(fixtures, log)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newRouter(fixtures fs.FS, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(log), requireToken)

	r.GET("/database/search", func(c *gin.Context) {
		serveFixture(c, fixtures, "search.json")
	})
	r.GET("/releases/:id", func(c *gin.Context) {
		id := c.Param("id")
		if strings.ContainsAny(id, `/\.`) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Release not found."})
			return
		}
		serveFixture(c, fixtures, path.Join("releases", id+".json"))
	})
	return r
}

// requireToken mimics Discogs rejecting unauthenticated database searches.
func requireToken(c *gin.Context) {
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Discogs token=") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "You must authenticate to access this resource."})
		return
	}
	c.Next()
}

func serveFixture(c *gin.Context, fixtures fs.FS, name string) {
	b, err := fs.ReadFile(fixtures, name)
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Release not found."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "cannot read " + name + ": " + err.Error()})
		return
	}
	// validate so a broken fixture fails loudly instead of upstream-shaped garbage
	if !json.Valid(b) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": name + " is not valid JSON"})
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}
