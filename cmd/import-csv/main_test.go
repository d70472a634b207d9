package main

import (
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"spinsoul/internal/artists"
	"spinsoul/internal/releases"
	"spinsoul/pkg/database"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "data.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const collectionCSV = `Catalog#,Artist,Title,Label,Format,Rating,Released,release_id,Collection Notes
V2940,Daft Punk,Discovery,Virgin,"2xLP, Album",5,2001-03-12,249504,Gatefold copy
V2821,Daft Punk,Homework,Virgin,"2xLP, Album",,1997,1,
XL,Radiohead,Kid A,Parlophone,LP,9,2000,2,bad rating
,, ,,,,,,
`

func TestImportDiscogsCollectionExport(t *testing.T) {
	db := openDB(t)
	imp := &importer{
		releases:      releases.NewRepo(db),
		artists:       artists.NewRepo(db),
		createArtists: true,
		log:           zerolog.New(io.Discard),
		artistIDs:     map[string]int64{},
	}

	n, err := imp.run(t.Context(), strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows, want 2", n)
	}

	items, err := imp.releases.List(t.Context(), releases.ListQuery{Q: "discovery"})
	if err != nil || len(items) != 1 {
		t.Fatalf("List = %+v, %v", items, err)
	}
	d := items[0]
	if d.Rating != 5 || d.Year == nil || *d.Year != 2001 || d.Review != "Gatefold copy" || d.ArtistID == nil {
		t.Fatalf("Discovery = %+v", d)
	}

	found, err := imp.artists.List(t.Context(), artists.ListQuery{})
	if err != nil || len(found) != 1 || found[0].Name != "Daft Punk" {
		t.Fatalf("artists = %+v, %v", found, err)
	}
}

func TestImportWithoutCreatingArtists(t *testing.T) {
	db := openDB(t)
	imp := &importer{
		releases:  releases.NewRepo(db),
		artists:   artists.NewRepo(db),
		log:       zerolog.New(io.Discard),
		artistIDs: map[string]int64{},
	}

	if _, err := imp.run(t.Context(), strings.NewReader("title,artist\nDiscovery,Daft Punk\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	items, err := imp.releases.List(t.Context(), releases.ListQuery{})
	if err != nil || len(items) != 1 || items[0].ArtistID != nil || items[0].Artist != "Daft Punk" {
		t.Fatalf("items = %+v, %v", items, err)
	}
}

func TestImportRequiresTitleColumn(t *testing.T) {
	imp := &importer{log: zerolog.Nop(), artistIDs: map[string]int64{}}
	if _, err := imp.run(t.Context(), strings.NewReader("artist\nDaft Punk\n")); err == nil {
		t.Fatalf("expected missing title column error")
	}
}
