package musicbrainz

import "regexp"

// MusicBrainz API response types.

// SearchResponse is the top-level response from the artist search endpoint.
type SearchResponse struct {
	Artists []Artist `json:"artists"`
}

// Artist is a single artist search hit.
type Artist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ReleaseGroupResponse is the top-level response from the release-group
// browse endpoint.
type ReleaseGroupResponse struct {
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

// ReleaseGroup is a MusicBrainz release group (an album-level entity
// grouping all releases of the same work).
type ReleaseGroup struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	PrimaryType      string         `json:"primary-type"`
	SecondaryTypes   []string       `json:"secondary-types"`
	FirstReleaseDate string         `json:"first-release-date"`
	ArtistCredit     []ArtistCredit `json:"artist-credit"`
	Relations        []Relation     `json:"relations"`
}

// ArtistCredit is a single credited artist on a release group.
type ArtistCredit struct {
	Name   string `json:"name"`
	Artist Artist `json:"artist"`
}

// Relation is a typed relation on a release group, such as a link to the
// matching Discogs master.
type Relation struct {
	Type string      `json:"type"`
	URL  RelationURL `json:"url"`
}

// RelationURL holds the target of a URL relation.
type RelationURL struct {
	Resource string `json:"resource"`
}

var discogsMasterURL = regexp.MustCompile(`(?i)https?://(?:www\.)?discogs\.com/(?:[a-z]{2}/)?master/(\d+)`)

// Year returns the four-digit year of the first release, or "" if unknown.
func (rg ReleaseGroup) Year() string {
	if len(rg.FirstReleaseDate) >= 4 {
		return rg.FirstReleaseDate[:4]
	}
	return ""
}

// DiscogsMasterID extracts a Discogs master id from the release group's URL
// relations, or "" if none is linked.
func (rg ReleaseGroup) DiscogsMasterID() string {
	for _, rel := range rg.Relations {
		if rel.Type != "discogs" {
			continue
		}
		if m := discogsMasterURL.FindStringSubmatch(rel.URL.Resource); m != nil {
			return m[1]
		}
	}
	return ""
}

// IsStudioAlbum reports whether the release group is a plain studio album
// credited solely to the given artist: primary type Album, no secondary
// types (which would mark live albums, compilations and soundtracks), and
// exactly one artist credit matching the resolved id.
func (rg ReleaseGroup) IsStudioAlbum(artistMBID string) bool {
	if rg.PrimaryType != "Album" {
		return false
	}
	if len(rg.SecondaryTypes) > 0 {
		return false
	}
	if len(rg.ArtistCredit) != 1 {
		return false
	}
	return rg.ArtistCredit[0].Artist.ID == artistMBID
}
