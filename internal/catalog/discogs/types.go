package discogs

// Discogs API response types.

// SearchResponse is the top-level response from the database search endpoint.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Thumb      string `json:"thumb"`
	CoverImage string `json:"cover_image"`
}

// Master is a Discogs master: the grouping of every pressing of one work.
type Master struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	MainRelease int       `json:"main_release"`
	Images      []Image   `json:"images"`
	Community   Community `json:"community"`
}

// Release is one specific Discogs release (a single pressing).
type Release struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Images    []Image   `json:"images"`
	Community Community `json:"community"`
}

// Community holds community-contributed statistics.
type Community struct {
	Rating Rating `json:"rating"`
}

// Rating is the community rating summary. An entity nobody has rated comes
// back with a zero count and a zero average.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Image represents a Discogs image.
type Image struct {
	Type string `json:"type"` // "primary" or "secondary"
	URI  string `json:"uri"`
}

// Values returns the rating as nullable rating/votes. A zero vote count
// means the entity is unrated and yields nils.
func (r Rating) Values() (*float64, *int) {
	if r.Count == 0 {
		return nil, nil
	}
	avg := r.Average
	count := r.Count
	return &avg, &count
}

// CoverURL returns the URI of the first image, or "" if there are none.
func coverURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URI
}

// CoverURL returns the master's primary cover image URL.
func (m *Master) CoverURL() string { return coverURL(m.Images) }

// CoverURL returns the release's primary cover image URL.
func (r *Release) CoverURL() string { return coverURL(r.Images) }
