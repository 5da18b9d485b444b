package catalog

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per source (requests per second). MusicBrainz and
// Discogs both document one request per second for keyed access.
var defaultRateLimits = map[Source]rate.Limit{
	SourceMusicBrainz: 1,
	SourceDiscogs:     1,
	SourceLastFM:      5,
}

// RateLimiterMap holds one rate.Limiter per source, created once at startup.
// Each client owns a reference; concurrent enrichment workers serialize on
// the limiter rather than bursting the upstream.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[Source]*rate.Limiter
}

// NewRateLimiterMap creates all source rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[Source]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// SetLimit overrides the limit for a source (for testing).
func (m *RateLimiterMap) SetLimit(name Source, limit rate.Limit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(limit, 1)
}

// Wait blocks until the rate limiter for the given source allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name Source) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
