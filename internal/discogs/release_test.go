package discogs

import (
	"reflect"
	"testing"
)

func TestNormalizeRelease_MissingCollectionsDefaultToEmpty(t *testing.T) {
	d, err := NormalizeRelease([]byte(`{"id": 7, "title": "Bare"}`))
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	if d.PrimaryArtistName != "" || d.CoverURL != "" {
		t.Fatalf("artist/cover = %q/%q, want empty", d.PrimaryArtistName, d.CoverURL)
	}
	for name, list := range map[string][]string{"genres": d.Genres, "styles": d.Styles, "labels": d.LabelNames} {
		if list == nil || len(list) != 0 {
			t.Fatalf("%s = %#v, want empty non-nil slice", name, list)
		}
	}
	if d.Year != nil {
		t.Fatalf("Year = %v, want nil", *d.Year)
	}
}

func TestNormalizeRelease_MistypedCollections(t *testing.T) {
	body := `{"title": "X", "genres": "Rock", "styles": {"a": 1}, "labels": "EMI", "artists": [], "images": null}`
	d, err := NormalizeRelease([]byte(body))
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	if len(d.Genres) != 0 || len(d.Styles) != 0 || len(d.LabelNames) != 0 {
		t.Fatalf("mistyped lists not coerced: %#v %#v %#v", d.Genres, d.Styles, d.LabelNames)
	}
	if d.PrimaryArtistName != "" || d.CoverURL != "" {
		t.Fatalf("artist/cover = %q/%q, want empty", d.PrimaryArtistName, d.CoverURL)
	}
}

func TestNormalizeRelease_CoverURLPreference(t *testing.T) {
	cases := []struct {
		name   string
		images string
		want   string
	}{
		{"uri only", `[{"uri":"A"}]`, "A"},
		{"resource_url only", `[{"resource_url":"B"}]`, "B"},
		{"both", `[{"uri":"A","resource_url":"B"}]`, "A"},
		{"empty uri falls back", `[{"uri":"","resource_url":"B"}]`, "B"},
		{"only first image counts", `[{}, {"uri":"C"}]`, ""},
		{"no images", `[]`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NormalizeRelease([]byte(`{"images": ` + tc.images + `}`))
			if err != nil {
				t.Fatalf("NormalizeRelease returned error: %v", err)
			}
			if d.CoverURL != tc.want {
				t.Fatalf("CoverURL = %q, want %q", d.CoverURL, tc.want)
			}
		})
	}
}

func TestNormalizeRelease_LabelsCappedAtFive(t *testing.T) {
	body := `{"labels": [{"name":"a"},{"name":"b"},{"name":"c"},{"name":"d"},{"name":"e"},{"name":"f"}]}`
	d, err := NormalizeRelease([]byte(body))
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(d.LabelNames, want) {
		t.Fatalf("LabelNames = %#v, want %#v", d.LabelNames, want)
	}
}

func TestNormalizeRelease_SummaryVibe(t *testing.T) {
	cases := []struct {
		name   string
		styles string
		genres string
		want   string
	}{
		{"two extras", `["Soul","Funk","Jazz"]`, `["R&B"]`, "Soul blending Funk and Jazz"},
		{"more than two extras", `["Soul","Funk","Jazz","Disco"]`, `["R&B"]`, "Soul blending Funk and Jazz"},
		{"one extra", `["House","Disco"]`, `["Electronic"]`, "House with Disco touches"},
		{"style only", `["House"]`, `["Electronic"]`, "House"},
		{"genre fallback", `[]`, `["R&B"]`, "R&B"},
		{"nothing", `[]`, `[]`, "music"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"title":"T","artists":[{"name":"A"}],"year":2001,"country":"France","styles":` + tc.styles + `,"genres":` + tc.genres + `}`
			d, err := NormalizeRelease([]byte(body))
			if err != nil {
				t.Fatalf("NormalizeRelease returned error: %v", err)
			}
			want := "T is A's 2001 album, a " + tc.want + " release. First issued in France."
			if d.GeneratedSummary != want {
				t.Fatalf("summary = %q, want %q", d.GeneratedSummary, want)
			}
		})
	}
}

func TestNormalizeRelease_SummaryWithoutYearOrCountry(t *testing.T) {
	d, err := NormalizeRelease([]byte(`{"title":"Discovery","artists":[{"name":"Daft Punk"}],"genres":["Electronic"]}`))
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	want := "Discovery is Daft Punk's  album, a Electronic release. A defining entry in its era."
	if d.GeneratedSummary != want {
		t.Fatalf("summary = %q, want %q", d.GeneratedSummary, want)
	}
}

func TestNormalizeRelease_Deterministic(t *testing.T) {
	body := []byte(`{"id":249504,"title":"Discovery","artists":[{"name":"Daft Punk"}],"year":2001,
		"genres":["Electronic"],"styles":["House","Disco"],"images":[{"uri":"https://img/1.jpg"}],
		"labels":[{"name":"Virgin"}],"country":"Europe"}`)

	a, err := NormalizeRelease(body)
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	b, err := NormalizeRelease(body)
	if err != nil {
		t.Fatalf("NormalizeRelease returned error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("normalization not deterministic:\n%#v\n%#v", a, b)
	}
	if a.ID.String() != "249504" || !a.ID.IsNumeric() {
		t.Fatalf("ID = %q numeric=%v", a.ID.String(), a.ID.IsNumeric())
	}
}

func TestNormalizeRelease_InvalidJSON(t *testing.T) {
	if _, err := NormalizeRelease([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestPreferredGenre(t *testing.T) {
	if got := PreferredGenre([]string{"Soul"}, []string{"R&B"}); got != "Soul" {
		t.Fatalf("PreferredGenre = %q, want Soul", got)
	}
	if got := PreferredGenre(nil, []string{"R&B"}); got != "R&B" {
		t.Fatalf("PreferredGenre = %q, want R&B", got)
	}
	if got := PreferredGenre([]string{""}, nil); got != "" {
		t.Fatalf("PreferredGenre = %q, want empty", got)
	}
}
