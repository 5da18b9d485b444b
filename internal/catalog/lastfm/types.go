package lastfm

import (
	"encoding/json"
	"strconv"
)

// Last.fm API response types.

// TopTracksResponse is the top-level response from user.getTopTracks.
type TopTracksResponse struct {
	TopTracks struct {
		Track trackList `json:"track"`
	} `json:"toptracks"`
}

// TopArtistsResponse is the top-level response from user.getTopArtists.
type TopArtistsResponse struct {
	TopArtists struct {
		Artist artistList `json:"artist"`
	} `json:"topartists"`
}

// RecentTracksResponse is the top-level response from user.getRecentTracks.
type RecentTracksResponse struct {
	RecentTracks struct {
		Track recentTrackList `json:"track"`
	} `json:"recenttracks"`
}

// RecentTrack is a single play from a user's recent listening feed. Unlike
// the top-tracks feed, each play carries the album it came from.
type RecentTrack struct {
	Name   string  `json:"name"`
	MBID   string  `json:"mbid"`
	Artist nameRef `json:"artist"`
	Album  nameRef `json:"album"`
	Attr   struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

// nameRef decodes the {"#text": ..., "mbid": ...} shape the recent-tracks
// feed uses for its artist and album fields.
type nameRef struct {
	Name string `json:"#text"`
	MBID string `json:"mbid"`
}

// TopTrack is a single track from a user's listening history.
type TopTrack struct {
	Name      string    `json:"name"`
	MBID      string    `json:"mbid"`
	Playcount intString `json:"playcount"`
	Artist    ArtistRef `json:"artist"`
}

// TopArtist is a single artist from a user's listening history.
type TopArtist struct {
	Name      string    `json:"name"`
	MBID      string    `json:"mbid"`
	Playcount intString `json:"playcount"`
}

// ArtistRef is the embedded artist on a track.
type ArtistRef struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

// intString decodes Last.fm numeric fields, which arrive as JSON strings.
type intString int

func (n *intString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some responses use bare numbers.
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*n = intString(i)
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil
	}
	*n = intString(i)
	return nil
}

// trackList tolerates Last.fm returning a bare object instead of a
// one-element array when a page has a single entry.
type trackList []TopTrack

func (l *trackList) UnmarshalJSON(data []byte) error {
	var many []TopTrack
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one TopTrack
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = trackList{one}
	return nil
}

type recentTrackList []RecentTrack

func (l *recentTrackList) UnmarshalJSON(data []byte) error {
	var many []RecentTrack
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one RecentTrack
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = recentTrackList{one}
	return nil
}

type artistList []TopArtist

func (l *artistList) UnmarshalJSON(data []byte) error {
	var many []TopArtist
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one TopArtist
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = artistList{one}
	return nil
}
