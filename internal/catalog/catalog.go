// Package catalog holds the plumbing shared by the upstream catalog
// clients: the source names, the identifier kinds of the rating catalog,
// the per-source rate limiters, and the error taxonomy that lets callers
// tell "upstream has no match" apart from "upstream unreachable".
package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Source uniquely identifies an upstream catalog.
type Source string

// Known catalog sources.
const (
	SourceMusicBrainz Source = "musicbrainz"
	SourceDiscogs     Source = "discogs"
	SourceLastFM      Source = "lastfm"
)

// IDKind distinguishes the two Discogs identifier kinds. A master groups
// every pressing of the same work and has the broader rating coverage; a
// release addresses one specific pressing.
type IDKind string

// Known identifier kinds.
const (
	KindMaster  IDKind = "master"
	KindRelease IDKind = "release"
)

// ErrNotFound indicates the upstream genuinely has no data for the query.
type ErrNotFound struct {
	Source Source
	Query  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("catalog %s: %s not found", e.Source, e.Query)
}

// ErrUnavailable indicates a transient failure (rate-limited, timeout,
// server error). Retried by the backoff wrapper; surfaced to the resolver
// only after retries are exhausted.
type ErrUnavailable struct {
	Source     Source
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("catalog %s unavailable: %v", e.Source, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrAuthRequired indicates the catalog needs credentials but none are
// configured.
type ErrAuthRequired struct {
	Source Source
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("catalog %s: credentials not configured", e.Source)
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsUnavailable reports whether err is an ErrUnavailable.
func IsUnavailable(err error) bool {
	var ua *ErrUnavailable
	return errors.As(err, &ua)
}
