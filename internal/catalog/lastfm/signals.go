package lastfm

import (
	"context"
	"strings"

	"github.com/aficcion/vinylbe/internal/scoring"
)

// TrackSignals fetches the user's top tracks for a recency bucket and
// returns them as scoring signals, feed order preserved.
func (c *Client) TrackSignals(ctx context.Context, bucket scoring.TimeRange) ([]scoring.Track, error) {
	tracks, err := c.TopTracks(ctx, PeriodFor(bucket))
	if err != nil {
		return nil, err
	}
	signals := make([]scoring.Track, len(tracks))
	for i, t := range tracks {
		signals[i] = scoring.Track{
			Name:      t.Name,
			Artist:    scoring.ArtistRef{ID: t.Artist.MBID, Name: t.Artist.Name},
			Playcount: int(t.Playcount),
			TimeRange: bucket,
		}
	}
	return signals, nil
}

// RecentTrackSignals fetches the user's latest plays and returns them as
// scoring signals with album identity attached, newest play first. A play
// whose album has no MusicBrainz id gets a normalized artist::album key
// instead, so repeated plays from the same album still group during
// aggregation. Plays with no album at all carry an empty album id and are
// dropped by the aggregator.
func (c *Client) RecentTrackSignals(ctx context.Context) ([]scoring.Track, error) {
	plays, err := c.RecentTracks(ctx)
	if err != nil {
		return nil, err
	}
	signals := make([]scoring.Track, len(plays))
	for i, p := range plays {
		artist := scoring.ArtistRef{ID: p.Artist.MBID, Name: p.Artist.Name}
		albumID := p.Album.MBID
		if albumID == "" && p.Album.Name != "" {
			albumID = albumKey(p.Artist.Name, p.Album.Name)
		}
		signals[i] = scoring.Track{
			Name:   p.Name,
			Artist: artist,
			Album: scoring.AlbumRef{
				ID:      albumID,
				Title:   p.Album.Name,
				Artists: []scoring.ArtistRef{artist},
			},
			Playcount: 1,
			TimeRange: scoring.RangeRecent,
		}
	}
	return signals, nil
}

func albumKey(artist, album string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + "::" + strings.ToLower(strings.TrimSpace(album))
}

// ArtistSignals fetches the user's top artists for a recency bucket and
// returns them as scoring signals, feed order preserved.
func (c *Client) ArtistSignals(ctx context.Context, bucket scoring.TimeRange) ([]scoring.Artist, error) {
	artists, err := c.TopArtists(ctx, PeriodFor(bucket))
	if err != nil {
		return nil, err
	}
	signals := make([]scoring.Artist, len(artists))
	for i, a := range artists {
		signals[i] = scoring.Artist{
			ID:        a.MBID,
			Name:      a.Name,
			Playcount: int(a.Playcount),
			TimeRange: bucket,
		}
	}
	return signals, nil
}
