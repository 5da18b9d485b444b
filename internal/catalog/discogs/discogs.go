package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aficcion/vinylbe/internal/catalog"
	"github.com/aficcion/vinylbe/internal/version"
)

const defaultBaseURL = "https://api.discogs.com"

// Client talks to the Discogs API, the rating catalog. Masters are the
// preferred identifier kind; releases are the per-pressing fallback.
type Client struct {
	client  *http.Client
	limiter *catalog.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	key     string
	secret  string
}

// New creates a Discogs client with the default base URL.
func New(limiter *catalog.RateLimiterMap, logger *slog.Logger, key, secret string) *Client {
	return NewWithBaseURL(limiter, logger, key, secret, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs client with a custom base URL (for testing).
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, key, secret, baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("catalog", "discogs")),
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		secret:  secret,
	}
}

// Master fetches a master by id.
func (c *Client) Master(ctx context.Context, id string) (*Master, error) {
	body, err := c.doRequest(ctx, "/masters/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var m Master
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing master response: %w", err)
	}
	return &m, nil
}

// Release fetches a release by id.
func (c *Client) Release(ctx context.Context, id string) (*Release, error) {
	body, err := c.doRequest(ctx, "/releases/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var r Release
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}
	return &r, nil
}

// SearchMaster searches for a master matching artist and title, returning
// the first hit's id.
func (c *Client) SearchMaster(ctx context.Context, artist, title string) (string, error) {
	return c.searchID(ctx, url.Values{
		"artist":        {artist},
		"release_title": {title},
		"type":          {string(catalog.KindMaster)},
		"per_page":      {"5"},
	})
}

// SearchRelease searches for a release matching artist and title, filtered
// to the given physical format, returning the first hit's id.
func (c *Client) SearchRelease(ctx context.Context, artist, title, format string) (string, error) {
	params := url.Values{
		"artist":        {artist},
		"release_title": {title},
		"type":          {string(catalog.KindRelease)},
		"per_page":      {"5"},
	}
	if format != "" {
		params.Set("format", format)
	}
	return c.searchID(ctx, params)
}

// ArtistImage searches for the artist and returns the cover image of the
// first hit, or "" if Discogs has none.
func (c *Client) ArtistImage(ctx context.Context, name string) (string, error) {
	body, err := c.doRequest(ctx, "/database/search", url.Values{
		"q":        {name},
		"type":     {"artist"},
		"per_page": {"1"},
	})
	if err != nil {
		return "", err
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing search response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].CoverImage, nil
}

func (c *Client) searchID(ctx context.Context, params url.Values) (string, error) {
	body, err := c.doRequest(ctx, "/database/search", params)
	if err != nil {
		return "", err
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing search response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", &catalog.ErrNotFound{
			Source: catalog.SourceDiscogs,
			Query:  params.Encode(),
		}
	}
	return strconv.Itoa(resp.Results[0].ID), nil
}

// doRequest executes a rate-limited GET with credentials and retry on
// transient failures.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.key == "" || c.secret == "" {
		return nil, &catalog.ErrAuthRequired{Source: catalog.SourceDiscogs}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.key)
	params.Set("secret", c.secret)
	reqURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := catalog.Retry(ctx, func() error {
		var err error
		body, err = c.get(ctx, reqURL)
		return err
	})
	return body, err
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, catalog.SourceDiscogs); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", req.URL.Path))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &catalog.ErrUnavailable{
			Source: catalog.SourceDiscogs,
			Cause:  err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &catalog.ErrNotFound{
			Source: catalog.SourceDiscogs,
			Query:  req.URL.Path,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &catalog.ErrAuthRequired{Source: catalog.SourceDiscogs}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &catalog.ErrUnavailable{
			Source:     catalog.SourceDiscogs,
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
