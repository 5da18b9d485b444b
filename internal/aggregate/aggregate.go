// Package aggregate groups track-level listening scores into album-level
// recommendations.
package aggregate

import (
	"log/slog"
	"sort"

	"github.com/aficcion/vinylbe/internal/scoring"
)

const (
	// MinTracks is the noise floor: an album needs this many contributing
	// tracks before a recommendation is trusted.
	MinTracks = 5

	// FavoriteBoost multiplies the score of albums by a favorite artist.
	FavoriteBoost = 5.0
)

// RangeStats accumulates score and track count for one recency bucket.
type RangeStats struct {
	Score  float64
	Tracks int
}

// Breakdown explains how an album's final score came about.
type Breakdown struct {
	BaseScore float64
	Boosted   bool
	ByRange   map[scoring.TimeRange]RangeStats
}

// AlbumRecommendation is one aggregated album, sorted by final score.
type AlbumRecommendation struct {
	AlbumID    string
	Title      string
	Artists    []scoring.ArtistRef
	TrackCount int
	Score      float64
	Breakdown  Breakdown
}

type albumAccum struct {
	title    string
	artists  []scoring.ArtistRef
	artistID map[string]struct{}
	tracks   int
	score    float64
	byRange  map[scoring.TimeRange]RangeStats
}

// Albums groups scored tracks by album id, drops albums under the track
// floor, boosts albums by a favorite artist, and returns the rest sorted
// by final score descending. Tracks without an album id contribute nothing.
func Albums(tracks []scoring.ScoredTrack, favorites []scoring.ScoredArtist, logger *slog.Logger) []AlbumRecommendation {
	favoriteIDs := make(map[string]struct{}, len(favorites))
	for _, a := range favorites {
		if a.ID != "" {
			favoriteIDs[a.ID] = struct{}{}
		}
	}

	accums := make(map[string]*albumAccum)
	for _, t := range tracks {
		id := t.Album.ID
		if id == "" {
			continue
		}
		acc, ok := accums[id]
		if !ok {
			acc = &albumAccum{
				title:    t.Album.Title,
				artists:  t.Album.Artists,
				artistID: make(map[string]struct{}),
				byRange:  make(map[scoring.TimeRange]RangeStats),
			}
			accums[id] = acc
		}
		acc.tracks++
		acc.score += t.Score
		for _, artist := range t.Album.Artists {
			if artist.ID != "" {
				acc.artistID[artist.ID] = struct{}{}
			}
		}
		stats := acc.byRange[t.TimeRange]
		stats.Score += t.Score
		stats.Tracks++
		acc.byRange[t.TimeRange] = stats
	}

	recs := make([]AlbumRecommendation, 0, len(accums))
	for id, acc := range accums {
		if acc.tracks < MinTracks {
			continue
		}
		boosted := false
		for artistID := range acc.artistID {
			if _, ok := favoriteIDs[artistID]; ok {
				boosted = true
				break
			}
		}
		final := acc.score
		if boosted {
			final *= FavoriteBoost
		}
		recs = append(recs, AlbumRecommendation{
			AlbumID:    id,
			Title:      acc.title,
			Artists:    acc.artists,
			TrackCount: acc.tracks,
			Score:      final,
			Breakdown: Breakdown{
				BaseScore: acc.score,
				Boosted:   boosted,
				ByRange:   acc.byRange,
			},
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].AlbumID < recs[j].AlbumID
	})

	logger.Debug("aggregated albums",
		"albums", len(accums),
		"kept", len(recs),
	)
	return recs
}
