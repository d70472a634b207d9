package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"spinsoul/internal/importer"
	"spinsoul/internal/importui"
	"spinsoul/pkg/logging"
	"spinsoul/pkg/models"
	"spinsoul/pkg/utils"
)

const defaultBaseURL = "http://localhost:8080"

type authResponse struct {
	Token string `json:"token"`
}

func main() {
	global := flag.NewFlagSet("spinsoul", flag.ExitOnError)
	baseURL := global.String("api", envOr("SPINSOUL_API", defaultBaseURL), "spinsoul API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	_ = global.Parse(os.Args[1:])

	log := logging.New(utils.LogConfig{Level: "info", Pretty: true})

	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	a := &api{
		baseURL: *baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		token:   readToken(*tokenPath),
	}

	switch cmd {
	case "import":
		handleImport(ctx, log, a, args[1:])
	case "releases":
		handleReleases(ctx, log, a, sub, rest)
	case "artists":
		handleArtists(ctx, log, a, sub, rest)
	case "auth":
		handleAuth(ctx, log, a, *tokenPath, sub, rest)
	case "health":
		var resp map[string]any
		if err := a.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
			log.Fatal().Err(err).Msg("health check failed")
		}
		printJSON(resp)
	case "sync":
		handleSync(ctx, log, *baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleImport(ctx context.Context, log zerolog.Logger, a *api, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	query := fs.String("q", "", "search query; omit for the interactive screen")
	pick := fs.Int("pick", 0, "candidate number to import (1-based)")
	rating := fs.Int("rating", 0, "rating to store (0-5)")
	_ = fs.Parse(args)

	if *rating < models.MinRating || *rating > models.MaxRating {
		log.Fatal().Int("rating", *rating).Msg("rating must be between 0 and 5")
	}

	source, err := importer.NewAPIClient(a.baseURL, a.client)
	if err != nil {
		log.Fatal().Err(err).Msg("api client")
	}
	save := func(ctx context.Context, p importer.RecordPrefill) (*models.Release, error) {
		return a.saveRelease(ctx, p, *rating)
	}

	if *query == "" {
		saved, err := importui.Run(ctx, source, save)
		if err != nil {
			log.Fatal().Err(err).Msg("import screen")
		}
		for _, rel := range saved {
			fmt.Printf("saved #%d %s - %s\n", rel.ID, rel.Artist, rel.Title)
		}
		return
	}

	if _, err := runImport(ctx, source, save, importOptions{Query: *query, Pick: *pick}, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("query", *query).Msg("import failed")
	}
}

func handleReleases(ctx context.Context, log zerolog.Logger, a *api, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("releases list", flag.ExitOnError)
		q := fs.String("q", "", "keyword in title or artist")
		genre := fs.String("genre", "", "genre filter")
		year := fs.Int("year", 0, "year filter")
		artistID := fs.Int64("artist-id", 0, "artist id filter")
		limit := fs.Int("limit", 50, "page size")
		_ = fs.Parse(args)

		qv := url.Values{}
		if *q != "" {
			qv.Set("q", *q)
		}
		if *genre != "" {
			qv.Set("genre", *genre)
		}
		if *year != 0 {
			qv.Set("year", strconv.Itoa(*year))
		}
		if *artistID != 0 {
			qv.Set("artistId", strconv.FormatInt(*artistID, 10))
		}
		qv.Set("limit", strconv.Itoa(*limit))

		list, err := a.listReleases(ctx, qv)
		if err != nil {
			log.Fatal().Err(err).Msg("list failed")
		}
		for _, r := range list.Items {
			fmt.Printf("#%-4d %s - %s %s\n", r.ID, r.Artist, r.Title, stars(r.Rating))
		}
		fmt.Printf("%d of %d\n", len(list.Items), list.Total)
	case "show":
		id := idFlag("releases show", args, log)
		var rel models.Release
		if err := a.doJSON(ctx, http.MethodGet, "/releases/"+id, nil, &rel); err != nil {
			log.Fatal().Err(err).Msg("show failed")
		}
		printJSON(rel)
	case "rate":
		fs := flag.NewFlagSet("releases rate", flag.ExitOnError)
		id := fs.Int64("id", 0, "release id")
		rating := fs.Int("rating", -1, "rating (0-5)")
		_ = fs.Parse(args)
		if *id <= 0 || *rating < models.MinRating || *rating > models.MaxRating {
			log.Fatal().Msg("usage: spinsoul releases rate -id N -rating 0..5")
		}
		var rel models.Release
		path := "/releases/" + strconv.FormatInt(*id, 10)
		if err := a.doJSON(ctx, http.MethodPatch, path, map[string]int{"rating": *rating}, &rel); err != nil {
			log.Fatal().Err(err).Msg("rate failed")
		}
		fmt.Printf("%s - %s %s\n", rel.Artist, rel.Title, stars(rel.Rating))
	case "delete":
		id := idFlag("releases delete", args, log)
		if err := a.doJSON(ctx, http.MethodDelete, "/releases/"+id, nil, nil); err != nil {
			log.Fatal().Err(err).Msg("delete failed")
		}
		fmt.Println("deleted release #" + id)
	default:
		log.Fatal().Msg("usage: spinsoul releases <list|show|rate|delete>")
	}
}

func handleArtists(ctx context.Context, log zerolog.Logger, a *api, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("artists list", flag.ExitOnError)
		name := fs.String("name", "", "name contains")
		country := fs.String("country", "", "country filter")
		_ = fs.Parse(args)

		qv := url.Values{}
		if *name != "" {
			qv.Set("name", *name)
		}
		if *country != "" {
			qv.Set("country", *country)
		}
		path := "/artists"
		if len(qv) > 0 {
			path += "?" + qv.Encode()
		}
		var list artistList
		if err := a.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
			log.Fatal().Err(err).Msg("list failed")
		}
		for _, ar := range list.Items {
			fmt.Printf("#%-4d %s %s\n", ar.ID, ar.Name, ar.Country)
		}
	case "show":
		id := idFlag("artists show", args, log)
		var ar models.Artist
		if err := a.doJSON(ctx, http.MethodGet, "/artists/"+id, nil, &ar); err != nil {
			log.Fatal().Err(err).Msg("show failed")
		}
		printJSON(ar)

		list, err := a.listReleases(ctx, url.Values{"artistId": {id}})
		if err != nil {
			log.Fatal().Err(err).Msg("list releases failed")
		}
		for _, r := range list.Items {
			fmt.Printf("  #%-4d %s %s\n", r.ID, r.Title, stars(r.Rating))
		}
	default:
		log.Fatal().Msg("usage: spinsoul artists <list|show>")
	}
}

func handleAuth(ctx context.Context, log zerolog.Logger, a *api, tokenPath, sub string, args []string) {
	switch sub {
	case "login", "register":
		fs := flag.NewFlagSet("auth "+sub, flag.ExitOnError)
		username := fs.String("username", "", "username (register only)")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		payload := map[string]string{"email": *email, "password": *password}
		if sub == "register" {
			payload["username"] = *username
		}
		var resp authResponse
		if err := a.doJSON(ctx, http.MethodPost, "/auth/"+sub, payload, &resp); err != nil {
			log.Fatal().Err(err).Msg(sub + " failed")
		}
		// a logged-in curator registering someone else stays logged in
		if sub == "register" && a.token != "" {
			fmt.Printf("registered %s\n", *username)
			return
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatal().Err(err).Msg("save token")
		}
		fmt.Println("logged in")
	case "logout":
		if a.token != "" {
			if err := a.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
				log.Warn().Err(err).Msg("server logout failed")
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatal().Err(err).Msg("logout failed")
		}
		fmt.Println("logged out")
	default:
		log.Fatal().Msg("usage: spinsoul auth <login|register|logout>")
	}
}

func handleSync(ctx context.Context, log zerolog.Logger, baseURL, sub string, args []string) {
	if sub != "listen" {
		log.Fatal().Msg("usage: spinsoul sync listen")
	}
	fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
	wsURL := fs.String("ws", "", "websocket URL (defaults to /ws on the API host)")
	_ = fs.Parse(args)

	endpoint := *wsURL
	if endpoint == "" {
		var err error
		if endpoint, err = websocketURL(baseURL, "/ws"); err != nil {
			log.Fatal().Err(err).Msg("ws url")
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", endpoint).Msg("connect failed")
	}
	defer conn.Close()
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	log.Info().Str("url", endpoint).Msg("listening for record changes")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("connection closed")
			}
			return
		}
		fmt.Print(string(msg))
	}
}

func idFlag(name string, args []string, log zerolog.Logger) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "record id")
	_ = fs.Parse(args)
	if *id <= 0 {
		log.Fatal().Msg(name + " requires -id")
	}
	return strconv.FormatInt(*id, 10)
}

func stars(n int) string {
	out := make([]rune, 0, models.MaxRating)
	for i := 0; i < models.MaxRating; i++ {
		if i < n {
			out = append(out, '★')
		} else {
			out = append(out, '☆')
		}
	}
	return string(out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(b))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printUsage() {
	fmt.Println("spinsoul [-api URL] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  import [-q query -pick N -rating R]")
	fmt.Println("  releases list|show|rate|delete")
	fmt.Println("  artists list|show")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  health")
	fmt.Println("  sync listen")
}
