package importer

import "spinsoul/internal/discogs"

// RecordPrefill pre-populates the record creation form from an imported
// release. The receiver owns it and may edit it before saving.
type RecordPrefill struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Year     *int   `json:"year"`
	Genre    string `json:"genre"`
	CoverURL string `json:"coverUrl"`
	Review   string `json:"review"`
}

// NewPrefill projects a release onto the form. Genre is always one string,
// chosen by discogs.PreferredGenre.
func NewPrefill(d discogs.ReleaseDetail) RecordPrefill {
	p := RecordPrefill{
		Title:    d.Title,
		Artist:   d.PrimaryArtistName,
		Genre:    discogs.PreferredGenre(d.Styles, d.Genres),
		CoverURL: d.CoverURL,
		Review:   d.GeneratedSummary,
	}
	if d.Year != nil {
		y := *d.Year
		p.Year = &y
	}
	return p
}
