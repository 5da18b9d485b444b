// Package merge combines independently ranked recommendation lists into
// one deduplicated list.
package merge

import (
	"strings"
)

// Source tags where a recommendation came from.
type Source string

// Known recommendation sources.
const (
	SourceHistory Source = "history" // primary listening-history list
	SourceArtist  Source = "artist"  // explicit artist resolution
	SourceMixed   Source = "mixed"   // secondary history-derived list
)

// Status is the user-facing state of a recommendation.
type Status string

// Recommendation statuses. Disliked and owned are sticky: once set they
// survive re-resolution. Favorite survives too, with metadata refreshed.
const (
	StatusNeutral  Status = "neutral"
	StatusFavorite Status = "favorite"
	StatusDisliked Status = "disliked"
	StatusOwned    Status = "owned"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNeutral, StatusFavorite, StatusDisliked, StatusOwned:
		return true
	}
	return false
}

// Recommendation is one merged album recommendation.
type Recommendation struct {
	Artist       string
	Album        string
	CollectionID string // rating-catalog master id, optional
	CoverURL     string
	Source       Source
	Status       Status
	Score        float64
}

// Keys returns the dedup keys of a recommendation: the normalized
// artist::album pair, plus collection::<id> when a catalog id is present.
// An item is a duplicate if any one of its keys was already seen.
func (r Recommendation) Keys() []string {
	keys := []string{normalize(r.Artist) + "::" + normalize(r.Album)}
	if r.CollectionID != "" {
		keys = append(keys, "collection::"+r.CollectionID)
	}
	return keys
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lists merges three ranked lists round-robin by index: at each index the
// primary list is drained first, then the secondary, then the artist list.
// The first occurrence of an item wins and later duplicates are dropped,
// so the primary list's top entries are never pre-empted by lower-ranked
// duplicates from the other lists.
func Lists(primary, artist, secondary []Recommendation) []Recommendation {
	seen := make(map[string]struct{})
	merged := make([]Recommendation, 0, len(primary)+len(artist)+len(secondary))

	take := func(list []Recommendation, i int) {
		if i >= len(list) {
			return
		}
		r := list[i]
		keys := r.Keys()
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				return
			}
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		merged = append(merged, r)
	}

	max := len(primary)
	if len(artist) > max {
		max = len(artist)
	}
	if len(secondary) > max {
		max = len(secondary)
	}
	for i := 0; i < max; i++ {
		take(primary, i)
		take(secondary, i)
		take(artist, i)
	}
	return merged
}
