package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"spinsoul/internal/artists"
	"spinsoul/internal/releases"
	"spinsoul/pkg/database"
	"spinsoul/pkg/logging"
	"spinsoul/pkg/utils"
)

func main() {
	var (
		artistsOut  = flag.String("artists", "data/artists.csv", "output CSV path for artists")
		releasesOut = flag.String("releases", "data/releases.csv", "output CSV path for releases")
	)
	flag.Parse()

	cfg, err := utils.Load(".env")
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(database.DefaultConfig(cfg.DBPath))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	n, err := writeFile(*artistsOut, func(w io.Writer) (int, error) {
		return exportArtists(ctx, artists.NewRepo(db), w)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("export artists failed")
	}
	log.Info().Int("rows", n).Str("path", *artistsOut).Msg("exported artists")

	n, err = writeFile(*releasesOut, func(w io.Writer) (int, error) {
		return exportReleases(ctx, releases.NewRepo(db), w)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("export releases failed")
	}
	log.Info().Int("rows", n).Str("path", *releasesOut).Msg("exported releases")
}

func writeFile(path string, export func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := export(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func exportArtists(ctx context.Context, repo *artists.Repo, out io.Writer) (int, error) {
	items, err := repo.List(ctx, artists.ListQuery{})
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "name", "country", "image_url", "bio"}); err != nil {
		return 0, err
	}
	for _, a := range items {
		if err := w.Write([]string{
			strconv.FormatInt(a.ID, 10),
			a.Name,
			a.Country,
			a.ImageURL,
			a.Bio,
		}); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(items), w.Error()
}

func exportReleases(ctx context.Context, repo *releases.Repo, out io.Writer) (int, error) {
	items, err := repo.List(ctx, releases.ListQuery{})
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "artist_id", "title", "artist", "year", "genre", "rating", "review", "cover_url", "created_at"}); err != nil {
		return 0, err
	}
	for _, r := range items {
		artistID := ""
		if r.ArtistID != nil {
			artistID = strconv.FormatInt(*r.ArtistID, 10)
		}
		year := ""
		if r.Year != nil {
			year = strconv.Itoa(*r.Year)
		}
		if err := w.Write([]string{
			strconv.FormatInt(r.ID, 10),
			artistID,
			r.Title,
			r.Artist,
			year,
			r.Genre,
			strconv.Itoa(r.Rating),
			r.Review,
			r.CoverURL,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(items), w.Error()
}
