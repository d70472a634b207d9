package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spinsoul/internal/artists"
	"spinsoul/internal/releases"
	"spinsoul/pkg/database"
	"spinsoul/pkg/logging"
	"spinsoul/pkg/models"
	"spinsoul/pkg/utils"
)

// Header aliases, lower-cased. The Discogs collection export uses
// "Released", "Rating" and "Collection Notes".
var columns = map[string][]string{
	"title":     {"title"},
	"artist":    {"artist"},
	"year":      {"year", "released"},
	"genre":     {"genre", "style"},
	"rating":    {"rating"},
	"review":    {"review", "notes", "collection notes"},
	"cover_url": {"cover_url", "coverurl"},
}

func main() {
	var (
		in            = flag.String("in", "data/releases.csv", "input CSV path")
		createArtists = flag.Bool("create-artists", false, "create artists that do not exist yet")
	)
	flag.Parse()

	cfg, err := utils.Load(".env")
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := database.Open(database.DefaultConfig(cfg.DBPath))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal().Err(err).Msg("open input")
	}
	defer f.Close()

	imp := &importer{
		releases:      releases.NewRepo(db),
		artists:       artists.NewRepo(db),
		createArtists: *createArtists,
		log:           log,
		artistIDs:     map[string]int64{},
	}
	n, err := imp.run(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	log.Info().Int("rows", n).Str("path", *in).Msg("imported releases")
}

type importer struct {
	releases      *releases.Repo
	artists       *artists.Repo
	createArtists bool
	log           zerolog.Logger

	artistIDs map[string]int64 // lower-cased name -> id
}

func (imp *importer) run(ctx context.Context, in io.Reader) (int, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	if _, ok := header["title"]; !ok {
		return 0, errors.New("csv has no title column")
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, err
		}

		rel, err := parseRow(header, row)
		if err != nil {
			imp.log.Warn().Err(err).Int("line", line).Msg("skipping row")
			continue
		}
		if rel.Title == "" {
			continue
		}

		if rel.Artist != "" {
			id, err := imp.artistID(ctx, rel.Artist)
			if err != nil {
				return imported, err
			}
			if id != 0 {
				rel.ArtistID = &id
			}
		}

		if _, err := imp.releases.Create(ctx, rel); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	return imported, nil
}

// artistID finds the artist by exact name, creating it when allowed. It
// returns 0 for unknown artists otherwise.
func (imp *importer) artistID(ctx context.Context, name string) (int64, error) {
	key := strings.ToLower(name)
	if id, ok := imp.artistIDs[key]; ok {
		return id, nil
	}

	found, err := imp.artists.List(ctx, artists.ListQuery{Name: name})
	if err != nil {
		return 0, err
	}
	for _, a := range found {
		if strings.EqualFold(a.Name, name) {
			imp.artistIDs[key] = a.ID
			return a.ID, nil
		}
	}

	if !imp.createArtists {
		imp.artistIDs[key] = 0
		return 0, nil
	}
	created, err := imp.artists.Create(ctx, models.Artist{Name: name})
	if err != nil {
		return 0, err
	}
	imp.artistIDs[key] = created.ID
	return created.ID, nil
}

func parseRow(header map[string]int, row []string) (models.Release, error) {
	rel := models.Release{
		Title:    valueAt(header, row, "title"),
		Artist:   valueAt(header, row, "artist"),
		Genre:    valueAt(header, row, "genre"),
		Review:   valueAt(header, row, "review"),
		CoverURL: valueAt(header, row, "cover_url"),
	}

	// "Released" may be a full date such as 2001-03-12
	if raw := valueAt(header, row, "year"); len(raw) >= 4 {
		y, err := strconv.Atoi(raw[:4])
		if err == nil && y >= models.MinYear && y <= models.MaxYear {
			rel.Year = &y
		}
	}

	if raw := valueAt(header, row, "rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < models.MinRating || n > models.MaxRating {
			return models.Release{}, fmt.Errorf("invalid rating %q", raw)
		}
		rel.Rating = n
	}
	return rel, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		name = strings.TrimSpace(strings.ToLower(name))
		for canonical, aliases := range columns {
			for _, alias := range aliases {
				if name == alias {
					if _, taken := header[canonical]; !taken {
						header[canonical] = idx
					}
				}
			}
		}
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
