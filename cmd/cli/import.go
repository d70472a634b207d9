package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"spinsoul/internal/discogs"
	"spinsoul/internal/importer"
	"spinsoul/internal/importui"
	"spinsoul/pkg/models"
)

type importOptions struct {
	Query string
	Pick  int // 1-based; 0 lists candidates only
}

var errNoResults = errors.New("no results")

// runImport drives one non-interactive import: search, list, pick, look up,
// save. It returns nil without saving when no pick was given.
func runImport(ctx context.Context, source importer.Source, save importui.SaveFunc, opts importOptions, out io.Writer) (*models.Release, error) {
	settled := make(chan importer.Snapshot, 1)
	orch := importer.New(source, importer.OnChange(func(s importer.Snapshot) {
		if s.State != importer.Results && s.State != importer.Failed {
			return
		}
		select {
		case settled <- s:
		default:
		}
	}))
	defer orch.Close()

	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, errors.New("query required")
	}
	orch.SetQuery(query)

	var snap importer.Snapshot
	select {
	case snap = <-settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if snap.State == importer.Failed {
		return nil, errors.New(snap.LastError)
	}
	if len(snap.Results) == 0 {
		return nil, errNoResults
	}

	printCandidates(out, snap.Results)
	if opts.Pick == 0 {
		fmt.Fprintln(out, "re-run with -pick N to import one")
		return nil, nil
	}
	if opts.Pick < 1 || opts.Pick > len(snap.Results) {
		return nil, fmt.Errorf("pick must be between 1 and %d", len(snap.Results))
	}

	chosen := snap.Results[opts.Pick-1]
	prefill, err := orch.Select(ctx, chosen.ID.String())
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", chosen.ID, err)
	}

	rel, err := save(ctx, prefill)
	if err != nil {
		return nil, fmt.Errorf("save release: %w", err)
	}
	fmt.Fprintf(out, "saved %q by %s as release #%d\n", rel.Title, rel.Artist, rel.ID)
	return rel, nil
}

func printCandidates(out io.Writer, results []discogs.SearchResult) {
	for i, r := range results {
		fmt.Fprintf(out, "%2d. %s  [%s]\n", i+1, importui.Describe(r), r.ID)
	}
}
