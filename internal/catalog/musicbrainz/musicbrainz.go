package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aficcion/vinylbe/internal/catalog"
	"github.com/aficcion/vinylbe/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Client talks to the MusicBrainz web service, the canonical metadata
// graph for artist and release-group identity.
type Client struct {
	client  *http.Client
	limiter *catalog.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz client with the default base URL.
func New(limiter *catalog.RateLimiterMap, logger *slog.Logger) *Client {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz client with a custom base URL (for testing).
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("catalog", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SearchArtist searches MusicBrainz for artists matching the given name.
func (c *Client) SearchArtist(ctx context.Context, name string) ([]Artist, error) {
	params := url.Values{
		"query": {fmt.Sprintf("artist:%q", name)},
		"fmt":   {"json"},
		"limit": {"10"},
	}
	reqURL := c.baseURL + "/artist?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Artists, nil
}

// ReleaseGroups fetches the release groups credited to an artist, filtered
// upstream to primary type Album, with artist credits and URL relations
// included so studio-album filtering and Discogs master extraction need no
// further calls.
func (c *Client) ReleaseGroups(ctx context.Context, mbid string) ([]ReleaseGroup, error) {
	params := url.Values{
		"artist":       {mbid},
		"primary-type": {"Album"},
		"inc":          {"artist-credits+url-rels"},
		"limit":        {"100"},
		"fmt":          {"json"},
	}
	reqURL := c.baseURL + "/release-group?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ReleaseGroupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release-group response: %w", err)
	}
	return resp.ReleaseGroups, nil
}

// doRequest executes a rate-limited GET with retry on transient failures.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	var body []byte
	err := catalog.Retry(ctx, func() error {
		var err error
		body, err = c.get(ctx, reqURL)
		return err
	})
	return body, err
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, catalog.SourceMusicBrainz); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &catalog.ErrUnavailable{
			Source: catalog.SourceMusicBrainz,
			Cause:  err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &catalog.ErrNotFound{
			Source: catalog.SourceMusicBrainz,
			Query:  reqURL,
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &catalog.ErrUnavailable{
			Source:     catalog.SourceMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
}

func userAgent() string {
	return fmt.Sprintf("Vinylbe/%s (https://github.com/aficcion/vinylbe)", version.Version)
}
