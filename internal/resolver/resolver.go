// Package resolver turns an artist name into a rated, cover-enriched list
// of studio albums. Resolution fans out over the metadata graph and the
// rating catalog, caches the full rated set, and degrades to an empty
// result rather than failing the caller.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aficcion/vinylbe/internal/cache"
	"github.com/aficcion/vinylbe/internal/catalog"
	"github.com/aficcion/vinylbe/internal/catalog/discogs"
	"github.com/aficcion/vinylbe/internal/catalog/musicbrainz"
)

const (
	// DefaultWorkers bounds the per-album enrichment fan-out.
	DefaultWorkers = 5

	// DefaultTopN is how many albums a resolution returns by default.
	DefaultTopN = 3

	// vinylFormat filters the release search fallback to the physical
	// medium being recommended.
	vinylFormat = "Vinyl"
)

// StudioAlbum is one resolved album, rated and enriched.
type StudioAlbum struct {
	Artist   string
	Title    string
	Year     string
	MasterID string
	// ReleaseID is set when the album could only be matched to a specific
	// pressing rather than a master.
	ReleaseID string
	Rating    *float64
	Votes     *int
	CoverURL  string
}

// Resolver orchestrates artist resolution over the upstream catalogs and
// the artist cache.
type Resolver struct {
	mb      *musicbrainz.Client
	discogs *discogs.Client
	cache   *cache.Store
	logger  *slog.Logger
	workers int
}

// New creates a resolver. A non-positive workers count falls back to the
// default.
func New(mb *musicbrainz.Client, dg *discogs.Client, store *cache.Store, logger *slog.Logger, workers int) *Resolver {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Resolver{
		mb:      mb,
		discogs: dg,
		cache:   store,
		logger:  logger.With("component", "resolver"),
		workers: workers,
	}
}

// ResolveArtist returns the artist's top rated studio albums. A fresh
// cache entry answers without any network calls; otherwise the full
// pipeline runs and the rated set is cached for the next call. An unknown
// or unreachable artist yields an empty slice, never an error.
func (r *Resolver) ResolveArtist(ctx context.Context, name string, topN int) []StudioAlbum {
	if topN <= 0 {
		topN = DefaultTopN
	}

	if artist, albums, ok := r.cache.Read(ctx, name); ok {
		r.logger.Debug("cache hit", "artist", name, "albums", len(albums))
		return top(fromCache(artist.Name, albums), topN)
	}

	mbid := r.findArtistMBID(ctx, name)
	if mbid == "" {
		r.logger.Info("artist not resolved", "artist", name)
		return nil
	}

	groups, err := r.mb.ReleaseGroups(ctx, mbid)
	if err != nil {
		r.logger.Warn("fetching release groups failed", "artist", name, "error", err)
		return nil
	}

	var candidates []candidate
	for _, rg := range groups {
		if !rg.IsStudioAlbum(mbid) {
			continue
		}
		candidates = append(candidates, candidate{
			title:    rg.Title,
			year:     rg.Year(),
			masterID: rg.DiscogsMasterID(),
		})
	}
	r.logger.Debug("studio albums found", "artist", name, "candidates", len(candidates), "release_groups", len(groups))
	if len(candidates) == 0 {
		return nil
	}

	albums, allUnavailable := r.enrichAll(ctx, name, candidates)
	sortByRating(albums)

	// When the rating catalog was unreachable for every candidate, an
	// empty set says nothing about the artist. Caching it would suppress
	// retries for the whole TTL window.
	if allUnavailable {
		r.logger.Warn("rating catalog unreachable, skipping cache write", "artist", name)
		return top(albums, topN)
	}

	imageURL := r.artistImage(ctx, name)
	if err := r.cache.Write(ctx, cache.Artist{
		Name:          name,
		MusicBrainzID: mbid,
		ImageURL:      imageURL,
	}, toCache(albums)); err != nil {
		r.logger.Warn("cache write failed", "artist", name, "error", err)
	}

	return top(albums, topN)
}

// ResolveArtists resolves several artists sequentially and returns the
// combined set re-sorted by rating then votes descending.
func (r *Resolver) ResolveArtists(ctx context.Context, names []string, topPerArtist int) []StudioAlbum {
	var all []StudioAlbum
	for _, name := range names {
		all = append(all, r.ResolveArtist(ctx, name, topPerArtist)...)
	}
	sortByRating(all)
	return all
}

// sortByRating orders albums by rating then votes descending. The sort is
// stable so albums tied on both keep their incoming order.
func sortByRating(albums []StudioAlbum) {
	sort.SliceStable(albums, func(i, j int) bool {
		ri, rj := deref(albums[i].Rating), deref(albums[j].Rating)
		if ri != rj {
			return ri > rj
		}
		return derefInt(albums[i].Votes) > derefInt(albums[j].Votes)
	})
}

type candidate struct {
	title    string
	year     string
	masterID string
}

// findArtistMBID resolves the canonical artist id: an exact
// case-insensitive name match wins, else the first search hit.
func (r *Resolver) findArtistMBID(ctx context.Context, name string) string {
	artists, err := r.mb.SearchArtist(ctx, name)
	if err != nil {
		if !catalog.IsNotFound(err) {
			r.logger.Warn("artist search failed", "artist", name, "error", err)
		}
		return ""
	}
	if len(artists) == 0 {
		return ""
	}
	for _, a := range artists {
		if strings.EqualFold(a.Name, name) {
			return a.ID
		}
	}
	return artists[0].ID
}

// enrichAll resolves rating and cover for each candidate with a bounded
// worker pool. It reports whether every enrichment failure was an
// upstream-unavailable condition (and nothing was rated).
func (r *Resolver) enrichAll(ctx context.Context, artist string, candidates []candidate) ([]StudioAlbum, bool) {
	type outcome struct {
		album       StudioAlbum
		rated       bool
		unavailable bool
	}
	outcomes := make([]outcome, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			album, err := r.enrich(ctx, artist, c)
			switch {
			case err == nil:
				outcomes[i] = outcome{album: album, rated: true}
			case catalog.IsUnavailable(err):
				r.logger.Warn("album enrichment unavailable", "artist", artist, "album", c.title, "error", err)
				outcomes[i] = outcome{unavailable: true}
			default:
				r.logger.Debug("album discarded", "artist", artist, "album", c.title, "reason", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var albums []StudioAlbum
	sawUnavailable := false
	for _, o := range outcomes {
		if o.rated {
			albums = append(albums, o.album)
		}
		if o.unavailable {
			sawUnavailable = true
		}
	}
	return albums, len(albums) == 0 && sawUnavailable
}

// enrich walks the identifier fallback chain and fetches rating and cover
// for one candidate. It returns ErrNotFound-kind errors for data-quality
// discards (no identifier, no rating anywhere).
func (r *Resolver) enrich(ctx context.Context, artist string, c candidate) (StudioAlbum, error) {
	album := StudioAlbum{
		Artist:   artist,
		Title:    c.title,
		Year:     c.year,
		MasterID: c.masterID,
	}

	// A master id is always preferred: its community rating covers every
	// pressing. The typed relation on the metadata graph wins, then a
	// master search, then a vinyl release search as the last resort.
	if album.MasterID == "" {
		id, err := r.discogs.SearchMaster(ctx, artist, c.title)
		switch {
		case err == nil:
			album.MasterID = id
		case catalog.IsNotFound(err):
			relID, relErr := r.discogs.SearchRelease(ctx, artist, c.title, vinylFormat)
			if relErr != nil {
				return album, relErr
			}
			album.ReleaseID = relID
		default:
			return album, err
		}
	}

	if album.MasterID != "" {
		return r.rateMaster(ctx, album)
	}
	return r.rateRelease(ctx, album)
}

// rateMaster fetches the master's rating, falling through to its main
// release when the master itself is unrated.
func (r *Resolver) rateMaster(ctx context.Context, album StudioAlbum) (StudioAlbum, error) {
	m, err := r.discogs.Master(ctx, album.MasterID)
	if err != nil {
		return album, err
	}
	album.CoverURL = m.CoverURL()
	album.Rating, album.Votes = m.Community.Rating.Values()
	if album.Rating != nil {
		return album, nil
	}

	if m.MainRelease == 0 {
		return album, &catalog.ErrNotFound{Source: catalog.SourceDiscogs, Query: "rating for master " + album.MasterID}
	}
	rel, err := r.discogs.Release(ctx, strconv.Itoa(m.MainRelease))
	if err != nil {
		return album, err
	}
	album.Rating, album.Votes = rel.Community.Rating.Values()
	if album.Rating == nil {
		return album, &catalog.ErrNotFound{Source: catalog.SourceDiscogs, Query: "rating for master " + album.MasterID}
	}
	if album.CoverURL == "" {
		album.CoverURL = rel.CoverURL()
	}
	return album, nil
}

func (r *Resolver) rateRelease(ctx context.Context, album StudioAlbum) (StudioAlbum, error) {
	rel, err := r.discogs.Release(ctx, album.ReleaseID)
	if err != nil {
		return album, err
	}
	album.CoverURL = rel.CoverURL()
	album.Rating, album.Votes = rel.Community.Rating.Values()
	if album.Rating == nil {
		return album, &catalog.ErrNotFound{Source: catalog.SourceDiscogs, Query: "rating for release " + album.ReleaseID}
	}
	return album, nil
}

func (r *Resolver) artistImage(ctx context.Context, name string) string {
	img, err := r.discogs.ArtistImage(ctx, name)
	if err != nil {
		r.logger.Debug("artist image lookup failed", "artist", name, "error", err)
		return ""
	}
	return img
}

func fromCache(artist string, albums []cache.Album) []StudioAlbum {
	out := make([]StudioAlbum, len(albums))
	for i, al := range albums {
		out[i] = StudioAlbum{
			Artist:    artist,
			Title:     al.Title,
			Year:      al.Year,
			MasterID:  al.MasterID,
			ReleaseID: al.ReleaseID,
			Rating:    al.Rating,
			Votes:     al.Votes,
			CoverURL:  al.CoverURL,
		}
	}
	return out
}

func toCache(albums []StudioAlbum) []cache.Album {
	out := make([]cache.Album, len(albums))
	for i, al := range albums {
		out[i] = cache.Album{
			Title:     al.Title,
			Year:      al.Year,
			MasterID:  al.MasterID,
			ReleaseID: al.ReleaseID,
			Rating:    al.Rating,
			Votes:     al.Votes,
			CoverURL:  al.CoverURL,
		}
	}
	return out
}

func top(albums []StudioAlbum, n int) []StudioAlbum {
	if len(albums) > n {
		return albums[:n]
	}
	return albums
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
