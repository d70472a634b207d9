package discogs

import (
	"encoding/json"
	"fmt"
)

const DefaultPerPage = 10

// NormalizeSearch maps a raw /database/search body into SearchResults,
// keeping upstream order and at most limit entries. Missing optional fields
// stay absent; a missing or empty results list gives an empty slice.
func NormalizeSearch(body []byte, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultPerPage
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := objectList(raw["results"])
	out := make([]SearchResult, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		out = append(out, searchResultFrom(item))
	}
	return out, nil
}

func searchResultFrom(item map[string]json.RawMessage) SearchResult {
	var r SearchResult

	if b, ok := item["id"]; ok {
		_ = r.ID.UnmarshalJSON(b)
	}
	r.Title = stringField(item, "title")
	if y, ok := lenientInt(item["year"]); ok {
		r.Year = &y
	}
	r.Country = stringField(item, "country")
	if b, ok := item["genre"]; ok {
		var g Genre
		_ = g.UnmarshalJSON(b)
		if g.IsList || len(g.Values) > 0 {
			r.Genre = &g
		}
	}
	r.CoverThumbnailURL = stringField(item, "cover_image")
	r.SourceURL = stringField(item, "resource_url")
	return r
}
