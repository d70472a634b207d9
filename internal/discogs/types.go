package discogs

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID keeps a Discogs identifier exactly as upstream sent it: numbers stay
// numbers on the wire and strings stay strings.
type ID struct {
	raw     string
	numeric bool
}

// ParseID builds an ID from user input such as a query parameter.
func ParseID(s string) ID {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID{raw: s, numeric: true}
	}
	return ID{raw: s}
}

func (id ID) String() string  { return id.raw }
func (id ID) IsNumeric() bool { return id.numeric }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.raw == "" {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ID{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID{raw: s}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = ID{raw: n.String(), numeric: true}
	}
	return nil
}

// Genre is the search-result genre field, which Discogs sends either as a
// single string or as a list. It is re-emitted in the same form.
type Genre struct {
	Values []string
	IsList bool
}

func (g Genre) MarshalJSON() ([]byte, error) {
	if g.IsList {
		if g.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(g.Values)
	}
	if len(g.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(g.Values[0])
}

func (g *Genre) UnmarshalJSON(b []byte) error {
	if s, ok := lenientString(b); ok {
		*g = Genre{Values: []string{s}}
		return nil
	}
	if list, ok := lenientStringList(b); ok {
		*g = Genre{Values: list, IsList: true}
		return nil
	}
	*g = Genre{}
	return nil
}

// SearchResult is one candidate from a catalogue search, trimmed to what the
// import screen shows.
type SearchResult struct {
	ID                ID     `json:"id"`
	Title             string `json:"title"`
	Year              *int   `json:"year,omitempty"`
	Country           string `json:"country,omitempty"`
	Genre             *Genre `json:"genre,omitempty"`
	CoverThumbnailURL string `json:"cover_image,omitempty"`
	SourceURL         string `json:"resource_url,omitempty"`
}

// ReleaseDetail is one normalized release. Genres, Styles and LabelNames are
// never nil.
type ReleaseDetail struct {
	ID                ID
	Title             string
	PrimaryArtistName string
	Year              *int
	Country           string
	Genres            []string
	Styles            []string
	CoverURL          string
	LabelNames        []string
	GeneratedSummary  string
}

// PreferredGenre is the single genre a release is filed under: the first
// style if it is set, otherwise the first genre, otherwise "".
func PreferredGenre(styles, genres []string) string {
	if len(styles) > 0 && styles[0] != "" {
		return styles[0]
	}
	if len(genres) > 0 && genres[0] != "" {
		return genres[0]
	}
	return ""
}

func lenientString(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

// lenientInt accepts 1999 as well as "1999". Zero and anything else is absent.
func lenientInt(b []byte) (int, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0, false
	}
	var n int
	if s, ok := lenientString(b); ok {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		n = v
	} else if err := json.Unmarshal(b, &n); err != nil {
		return 0, false
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}

// lenientStringList decodes a JSON array, skipping elements that are not
// strings. Anything that is not an array reports false.
func lenientStringList(b []byte) ([]string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil, false
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := lenientString(r); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// objectList decodes a JSON array of objects. Non-object elements become
// empty maps so positions are preserved.
func objectList(b []byte) []map[string]json.RawMessage {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make([]map[string]json.RawMessage, 0, len(raw))
	for _, r := range raw {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(r, &obj); err != nil || obj == nil {
			obj = map[string]json.RawMessage{}
		}
		out = append(out, obj)
	}
	return out
}

func stringField(obj map[string]json.RawMessage, key string) string {
	s, _ := lenientString(obj[key])
	return s
}
