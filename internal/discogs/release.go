package discogs

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const maxLabels = 5

// NormalizeRelease maps a raw /releases/{id} body into a ReleaseDetail.
// Missing or mistyped artists, images, genres, styles and labels fall back to
// empty values; only a body that is not a JSON object is an error.
func NormalizeRelease(body []byte) (ReleaseDetail, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ReleaseDetail{}, fmt.Errorf("decode release response: %w", err)
	}

	var d ReleaseDetail
	if b, ok := raw["id"]; ok {
		_ = d.ID.UnmarshalJSON(b)
	}
	d.Title = stringField(raw, "title")
	if y, ok := lenientInt(raw["year"]); ok {
		d.Year = &y
	}
	d.Country = stringField(raw, "country")

	if artists := objectList(raw["artists"]); len(artists) > 0 {
		d.PrimaryArtistName = stringField(artists[0], "name")
	}

	if images := objectList(raw["images"]); len(images) > 0 {
		d.CoverURL = stringField(images[0], "uri")
		if d.CoverURL == "" {
			d.CoverURL = stringField(images[0], "resource_url")
		}
	}

	d.Genres = stringListOrEmpty(raw["genres"])
	d.Styles = stringListOrEmpty(raw["styles"])

	d.LabelNames = []string{}
	for _, l := range objectList(raw["labels"]) {
		if len(d.LabelNames) == maxLabels {
			break
		}
		d.LabelNames = append(d.LabelNames, stringField(l, "name"))
	}

	d.GeneratedSummary = summarize(d)
	return d, nil
}

func stringListOrEmpty(b []byte) []string {
	list, ok := lenientStringList(b)
	if !ok {
		return []string{}
	}
	return list
}

// summarize writes the short review text shown on imported records:
//
//	"{title} is {artist}'s {year} album, a {vibe} release." + country sentence
//
// An absent year leaves a double space in the first sentence.
func summarize(d ReleaseDetail) string {
	primary := PreferredGenre(d.Styles, d.Genres)
	if primary == "" {
		primary = "music"
	}

	var extras []string
	if len(d.Styles) > 1 {
		extras = d.Styles[1:min(len(d.Styles), 3)]
	}

	vibe := primary
	switch len(extras) {
	case 1:
		vibe = fmt.Sprintf("%s with %s touches", primary, extras[0])
	case 2:
		vibe = fmt.Sprintf("%s blending %s and %s", primary, extras[0], extras[1])
	}

	yearText := ""
	if d.Year != nil {
		yearText = strconv.Itoa(*d.Year)
	}

	review := fmt.Sprintf("%s is %s's %s album, a %s release.", d.Title, d.PrimaryArtistName, yearText, vibe)
	if d.Country != "" {
		review += fmt.Sprintf(" First issued in %s.", d.Country)
	} else {
		review += " A defining entry in its era."
	}
	return review
}
