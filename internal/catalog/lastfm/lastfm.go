// Package lastfm fetches a user's listening history from the Last.fm
// web service. Results are paged upstream; the client aggregates pages
// up to a fixed cap.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aficcion/vinylbe/internal/catalog"
	"github.com/aficcion/vinylbe/internal/scoring"
	"github.com/aficcion/vinylbe/internal/version"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	perPage  = 50
	maxItems = 300
)

// Period is a Last.fm listening period.
type Period string

// Periods accepted by the Last.fm API.
const (
	Period7Day    Period = "7day"
	Period1Month  Period = "1month"
	Period3Month  Period = "3month"
	Period6Month  Period = "6month"
	Period12Month Period = "12month"
	PeriodOverall Period = "overall"
)

// PeriodFor maps a recency bucket to the Last.fm period the history feed
// is built from. Unknown buckets fall back to three months.
func PeriodFor(bucket scoring.TimeRange) Period {
	switch bucket {
	case scoring.RangeRecent:
		return Period7Day
	case scoring.RangeOld:
		return Period12Month
	default:
		return Period3Month
	}
}

// Client talks to the Last.fm API for a single user.
type Client struct {
	client   *http.Client
	limiter  *catalog.RateLimiterMap
	logger   *slog.Logger
	baseURL  string
	apiKey   string
	username string
}

func New(limiter *catalog.RateLimiterMap, logger *slog.Logger, apiKey, username string) *Client {
	return NewWithBaseURL(limiter, logger, apiKey, username, defaultBaseURL)
}

// NewWithBaseURL is used by tests to point the client at a fake server.
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, apiKey, username, baseURL string) *Client {
	return &Client{
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  limiter,
		logger:   logger.With("catalog", catalog.SourceLastFM),
		baseURL:  baseURL,
		apiKey:   apiKey,
		username: username,
	}
}

// TopTracks returns the user's most played tracks for the period,
// fetching pages until the cap is reached or a short page ends the feed.
func (c *Client) TopTracks(ctx context.Context, period Period) ([]TopTrack, error) {
	var all []TopTrack
	for page := 1; len(all) < maxItems; page++ {
		var resp TopTracksResponse
		if err := c.doRequest(ctx, "user.getTopTracks", period, page, &resp); err != nil {
			return nil, err
		}
		batch := resp.TopTracks.Track
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	if len(all) > maxItems {
		all = all[:maxItems]
	}
	c.logger.Debug("fetched top tracks", "period", period, "count", len(all))
	return all, nil
}

// RecentTracks returns the user's latest completed plays, newest first,
// up to the item cap. The in-progress "now playing" row the feed prepends
// is dropped.
func (c *Client) RecentTracks(ctx context.Context) ([]RecentTrack, error) {
	var all []RecentTrack
	for page := 1; len(all) < maxItems; page++ {
		var resp RecentTracksResponse
		if err := c.doRequest(ctx, "user.getRecentTracks", "", page, &resp); err != nil {
			return nil, err
		}
		batch := resp.RecentTracks.Track
		if len(batch) == 0 {
			break
		}
		for _, t := range batch {
			if t.Attr.NowPlaying != "" {
				continue
			}
			all = append(all, t)
		}
		if len(batch) < perPage {
			break
		}
	}
	if len(all) > maxItems {
		all = all[:maxItems]
	}
	c.logger.Debug("fetched recent tracks", "count", len(all))
	return all, nil
}

// TopArtists returns the user's most played artists for the period.
func (c *Client) TopArtists(ctx context.Context, period Period) ([]TopArtist, error) {
	var all []TopArtist
	for page := 1; len(all) < maxItems; page++ {
		var resp TopArtistsResponse
		if err := c.doRequest(ctx, "user.getTopArtists", period, page, &resp); err != nil {
			return nil, err
		}
		batch := resp.TopArtists.Artist
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	if len(all) > maxItems {
		all = all[:maxItems]
	}
	c.logger.Debug("fetched top artists", "period", period, "count", len(all))
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, method string, period Period, page int, out any) error {
	if c.apiKey == "" {
		return &catalog.ErrAuthRequired{Source: catalog.SourceLastFM}
	}
	params := url.Values{}
	params.Set("method", method)
	params.Set("user", c.username)
	// The recent-tracks feed is windowed by timestamps, not periods.
	if period != "" {
		params.Set("period", string(period))
	}
	params.Set("limit", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	return catalog.Retry(ctx, func() error {
		return c.get(ctx, c.baseURL+"?"+params.Encode(), out)
	})
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx, catalog.SourceLastFM); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "vinylbe/"+version.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		return &catalog.ErrUnavailable{Source: catalog.SourceLastFM, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &catalog.ErrAuthRequired{Source: catalog.SourceLastFM}
	case resp.StatusCode == http.StatusNotFound:
		return &catalog.ErrNotFound{Source: catalog.SourceLastFM, Query: c.username}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &catalog.ErrUnavailable{
			Source:     catalog.SourceLastFM,
			Cause:      fmt.Errorf("status %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("lastfm: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return &catalog.ErrUnavailable{Source: catalog.SourceLastFM, Cause: err}
	}
	return json.Unmarshal(body, out)
}
