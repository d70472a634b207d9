package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Release is a record in the personal catalogue. Artist holds the free-text
// name typed (or imported) on the form; ArtistID links to an Artist row when
// the release was filed under a known artist.
type Release struct {
	ID        int64     `json:"id"`
	ArtistID  *int64    `json:"artistId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Year      *int      `json:"year"`
	Genre     string    `json:"genre"`
	CoverURL  string    `json:"coverUrl"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReleasePatch carries the fields of a partial update. Nil means "leave as
// is". Year and ArtistID are nullable columns, so an explicit JSON null for
// them sets ClearYear or ClearArtistID instead.
type ReleasePatch struct {
	ArtistID *int64  `json:"artistId"`
	Title    *string `json:"title"`
	Artist   *string `json:"artist"`
	Year     *int    `json:"year"`
	Genre    *string `json:"genre"`
	CoverURL *string `json:"coverUrl"`
	Rating   *int    `json:"rating"`
	Review   *string `json:"review"`

	ClearArtistID bool `json:"-"`
	ClearYear     bool `json:"-"`
}

func (p *ReleasePatch) UnmarshalJSON(b []byte) error {
	type plain ReleasePatch
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(b, &present); err != nil {
		return err
	}
	p.ClearArtistID = isNull(present, "artistId")
	p.ClearYear = isNull(present, "year")
	return nil
}

func isNull(m map[string]json.RawMessage, key string) bool {
	raw, ok := m[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

const (
	MinRating = 0
	MaxRating = 5

	MinYear = 1900
	MaxYear = 2100
)
