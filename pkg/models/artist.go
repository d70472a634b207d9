package models

type Artist struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	ImageURL string `json:"imageUrl"`
	Bio      string `json:"bio"`
}

type ArtistPatch struct {
	Name     *string `json:"name"`
	Country  *string `json:"country"`
	ImageURL *string `json:"imageUrl"`
	Bio      *string `json:"bio"`
}
