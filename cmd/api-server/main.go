package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spinsoul/internal/artists"
	"spinsoul/internal/auth"
	"spinsoul/internal/discogs"
	"spinsoul/internal/releases"
	synchub "spinsoul/internal/sync"
	"spinsoul/pkg/database"
	"spinsoul/pkg/logging"
	"spinsoul/pkg/utils"
)

func main() {
	configPath := flag.String("config", ".env", "optional config file (.env, yaml, json, toml)")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log)

	dbCfg := database.DefaultConfig(cfg.DBPath)
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbCfg.Path).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	hub := synchub.NewHub(log)
	router, err := newRouter(cfg, log, db, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}
	if cfg.Discogs.Token == "" {
		log.Warn().Msg("DISCOGS_TOKEN is not set; proxy endpoints will answer 500")
	}

	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.HTTPAddr).Bool("auth", cfg.Auth.Enabled).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := tcpSrv.Close(); err != nil {
		log.Error().Err(err).Msg("tcp shutdown")
	}

	wg.Wait()
	log.Info().Msg("servers stopped")
}

func newRouter(cfg utils.Config, log zerolog.Logger, db *sql.DB, hub *synchub.Hub) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger(log))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	client, err := discogs.NewClient(discogs.Config{
		Token:     cfg.Discogs.Token,
		BaseURL:   cfg.Discogs.BaseURL,
		UserAgent: cfg.Discogs.UserAgent,
		Timeout:   cfg.Discogs.Timeout,
		PerPage:   cfg.Discogs.PerPage,
	}, nil)
	if err != nil {
		return nil, err
	}
	proxy := discogs.NewHandler(client)
	proxy.RegisterRoutes(router.Group(""))
	proxy.RegisterLegacyRoutes(router.Group("/api"))

	router.GET("/ws", synchub.WSHandler(hub))

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"discogs":     client.HasToken(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokens)
	authHandler.InviteOnly = cfg.Auth.Enabled
	authHandler.RegisterRoutes(router.Group("/auth"))
	guards := auth.WriteGuards(cfg.Auth.Enabled, tokens, authRepo)

	artists.NewHandler(artists.NewRepo(db), hub).RegisterRoutes(router.Group("/artists"), guards...)
	releases.NewHandler(releases.NewRepo(db), hub).RegisterRoutes(router.Group("/releases"), guards...)

	return router, nil
}
