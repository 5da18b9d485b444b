package musicbrainz

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/aficcion/vinylbe/internal/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testLimiter(t *testing.T) *catalog.RateLimiterMap {
	t.Helper()
	limiter := catalog.NewRateLimiterMap()
	limiter.SetLimit(catalog.SourceMusicBrainz, rate.Inf)
	return limiter
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "Vinylbe/") {
			t.Errorf("missing User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/artist"):
			w.Write(loadFixture(t, "artist_search.json"))
		case strings.HasPrefix(r.URL.Path, "/release-group"):
			if r.URL.Query().Get("primary-type") != "Album" {
				t.Errorf("expected primary-type=Album, got %q", r.URL.Query().Get("primary-type"))
			}
			w.Write(loadFixture(t, "release_groups.json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSearchArtist(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewWithBaseURL(testLimiter(t), testLogger(), srv.URL)

	artists, err := c.SearchArtist(context.Background(), "Radiohead")
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if len(artists) != 3 {
		t.Fatalf("expected 3 artists, got %d", len(artists))
	}
	if artists[1].Name != "Radiohead" {
		t.Errorf("expected Radiohead, got %s", artists[1].Name)
	}
	if artists[1].ID != "a74b1b7f-71a5-4011-9441-d0b5e4122711" {
		t.Errorf("unexpected mbid %s", artists[1].ID)
	}
}

func TestReleaseGroups(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewWithBaseURL(testLimiter(t), testLogger(), srv.URL)

	groups, err := c.ReleaseGroups(context.Background(), "a74b1b7f-71a5-4011-9441-d0b5e4122711")
	if err != nil {
		t.Fatalf("ReleaseGroups: %v", err)
	}
	if len(groups) != 4 {
		t.Fatalf("expected 4 release groups, got %d", len(groups))
	}
	if groups[0].Title != "OK Computer" {
		t.Errorf("expected OK Computer, got %s", groups[0].Title)
	}
	if got := groups[0].Year(); got != "1997" {
		t.Errorf("expected year 1997, got %q", got)
	}
}

func TestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	c := NewWithBaseURL(testLimiter(t), testLogger(), srv.URL)

	_, err := c.SearchArtist(context.Background(), "Nobody")
	if !catalog.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "artist_search.json"))
	}))
	defer srv.Close()
	c := NewWithBaseURL(testLimiter(t), testLogger(), srv.URL)

	artists, err := c.SearchArtist(context.Background(), "Radiohead")
	if err != nil {
		t.Fatalf("SearchArtist after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if len(artists) != 3 {
		t.Errorf("expected 3 artists, got %d", len(artists))
	}
}

func TestIsStudioAlbum(t *testing.T) {
	const mbid = "a74b1b7f-71a5-4011-9441-d0b5e4122711"
	srv := newTestServer(t)
	defer srv.Close()
	c := NewWithBaseURL(testLimiter(t), testLogger(), srv.URL)

	groups, err := c.ReleaseGroups(context.Background(), mbid)
	if err != nil {
		t.Fatalf("ReleaseGroups: %v", err)
	}

	// Live albums and shared credits are filtered out.
	want := map[string]bool{
		"OK Computer":                       true,
		"I Might Be Wrong: Live Recordings": false,
		"Kid A":                             true,
		"Selected Collaborations":           false,
	}
	for _, rg := range groups {
		if got := rg.IsStudioAlbum(mbid); got != want[rg.Title] {
			t.Errorf("IsStudioAlbum(%s) = %v, want %v", rg.Title, got, want[rg.Title])
		}
	}
}

func TestDiscogsMasterID(t *testing.T) {
	tests := []struct {
		resource string
		want     string
	}{
		{"https://www.discogs.com/master/6501", "6501"},
		{"https://discogs.com/master/6479", "6479"},
		{"https://www.discogs.com/es/master/12345", "12345"},
		{"http://www.discogs.com/Master/99", "99"},
		{"https://www.discogs.com/release/6501", ""},
		{"https://example.com/master/6501", ""},
	}
	for _, tt := range tests {
		rg := ReleaseGroup{Relations: []Relation{{Type: "discogs", URL: RelationURL{Resource: tt.resource}}}}
		if got := rg.DiscogsMasterID(); got != tt.want {
			t.Errorf("DiscogsMasterID(%s) = %q, want %q", tt.resource, got, tt.want)
		}
	}
}
