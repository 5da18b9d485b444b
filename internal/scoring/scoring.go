// Package scoring turns ordered listening signals into comparable numeric
// scores. The functions are pure: they annotate copies of their input and
// never mutate or reorder it.
package scoring

// TimeRange is the coarse recency bucket a signal was observed in.
type TimeRange string

// Recency buckets, from most to least recent.
const (
	RangeRecent TimeRange = "recent"
	RangeMid    TimeRange = "mid"
	RangeOld    TimeRange = "old"
)

// DefaultWindow is the positional scoring window size.
const DefaultWindow = 300

// Recent listening counts for more than old listening.
var recencyWeights = map[TimeRange]float64{
	RangeRecent: 3.0,
	RangeMid:    2.0,
	RangeOld:    1.0,
}

// Weight returns the recency weight for a time range. Unknown ranges
// weigh 1.
func Weight(tr TimeRange) float64 {
	if w, ok := recencyWeights[tr]; ok {
		return w
	}
	return 1.0
}

// ArtistRef identifies an artist on a signal.
type ArtistRef struct {
	ID   string
	Name string
}

// AlbumRef identifies the album a track belongs to.
type AlbumRef struct {
	ID      string
	Title   string
	Artists []ArtistRef
}

// Track is a track-level listening signal.
type Track struct {
	Name      string
	Artist    ArtistRef
	Album     AlbumRef
	Playcount int
	TimeRange TimeRange
}

// Artist is an artist-level listening signal.
type Artist struct {
	ID        string
	Name      string
	Playcount int
	TimeRange TimeRange
}

// ScoredTrack is a track annotated with its original position and score.
type ScoredTrack struct {
	Track
	Position int
	Score    float64
}

// ScoredArtist is an artist annotated with its original position and score.
type ScoredArtist struct {
	Artist
	Position int
	Score    float64
}

func positionalScore(idx, window int, tr TimeRange) (int, float64) {
	pos := idx % window
	return pos, float64(window-pos) * Weight(tr)
}

// PositionalTracks scores tracks by their rank in the feed: the item at a
// lower index never scores below one at a higher index within the same
// recency bucket.
func PositionalTracks(tracks []Track, window int) []ScoredTrack {
	if window <= 0 {
		window = DefaultWindow
	}
	scored := make([]ScoredTrack, len(tracks))
	for i, t := range tracks {
		pos, s := positionalScore(i, window, t.TimeRange)
		scored[i] = ScoredTrack{Track: t, Position: pos, Score: s}
	}
	return scored
}

// PositionalArtists scores artists by their rank in the feed.
func PositionalArtists(artists []Artist, window int) []ScoredArtist {
	if window <= 0 {
		window = DefaultWindow
	}
	scored := make([]ScoredArtist, len(artists))
	for i, a := range artists {
		pos, s := positionalScore(i, window, a.TimeRange)
		scored[i] = ScoredArtist{Artist: a, Position: pos, Score: s}
	}
	return scored
}

// PlaycountTracks scores tracks relative to the batch maximum playcount.
// The most played track scores window times its recency weight; a batch
// with no plays scores all zeros.
func PlaycountTracks(tracks []Track, window int) []ScoredTrack {
	if window <= 0 {
		window = DefaultWindow
	}
	var max int
	for _, t := range tracks {
		if t.Playcount > max {
			max = t.Playcount
		}
	}
	scored := make([]ScoredTrack, len(tracks))
	for i, t := range tracks {
		scored[i] = ScoredTrack{Track: t, Position: i, Score: playcountScore(t.Playcount, max, window, t.TimeRange)}
	}
	return scored
}

// PlaycountArtists scores artists relative to the batch maximum playcount.
func PlaycountArtists(artists []Artist, window int) []ScoredArtist {
	if window <= 0 {
		window = DefaultWindow
	}
	var max int
	for _, a := range artists {
		if a.Playcount > max {
			max = a.Playcount
		}
	}
	scored := make([]ScoredArtist, len(artists))
	for i, a := range artists {
		scored[i] = ScoredArtist{Artist: a, Position: i, Score: playcountScore(a.Playcount, max, window, a.TimeRange)}
	}
	return scored
}

func playcountScore(playcount, max, window int, tr TimeRange) float64 {
	if max == 0 {
		return 0
	}
	return float64(playcount) / float64(max) * float64(window) * Weight(tr)
}
