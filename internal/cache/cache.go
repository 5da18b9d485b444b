// Package cache persists resolved artist album data with a TTL. A stale
// entry is treated exactly like a missing one, and datastore failures on
// the read path degrade to a cache miss so resolution can proceed over
// the network.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a cached artist entry stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Artist is a cached artist row.
type Artist struct {
	ID            string
	Name          string
	MusicBrainzID string
	ImageURL      string
	UpdatedAt     time.Time
}

// Album is a cached album row. Rating and Votes are nil for albums the
// rating catalog had no community rating for (those are normally filtered
// out before the cache is written).
type Album struct {
	ID        string
	Title     string
	Year      string
	MasterID  string
	ReleaseID string
	Rating    *float64
	Votes     *int
	CoverURL  string
}

// Store reads and writes the artist cache.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	ttl    time.Duration
}

// NewStore creates a cache store. A non-positive ttl falls back to the
// default.
func NewStore(db *sql.DB, logger *slog.Logger, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, logger: logger.With("component", "cache"), ttl: ttl}
}

// Read returns the cached artist and albums by name (case-insensitive),
// ordered by rating then votes descending. A stale entry, a missing entry
// and an unreachable datastore all come back as ok == false.
func (s *Store) Read(ctx context.Context, name string) (*Artist, []Album, bool) {
	var a Artist
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, musicbrainz_id, image_url, updated_at
		FROM artists WHERE name = ?
	`, name).Scan(&a.ID, &a.Name, &a.MusicBrainzID, &a.ImageURL, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", "artist", name, "error", err)
		return nil, nil, false
	}

	a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil || time.Since(a.UpdatedAt) > s.ttl {
		s.logger.Debug("cache entry stale", "artist", name, "updated_at", updatedAt)
		return nil, nil, false
	}

	albums, err := s.readAlbums(ctx, a.ID)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", "artist", name, "error", err)
		return nil, nil, false
	}
	return &a, albums, true
}

func (s *Store) readAlbums(ctx context.Context, artistID string) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, year, master_id, release_id, rating, votes, cover_url
		FROM albums WHERE artist_id = ?
		ORDER BY rating DESC, votes DESC
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var albums []Album
	for rows.Next() {
		var al Album
		var rating sql.NullFloat64
		var votes sql.NullInt64
		if err := rows.Scan(&al.ID, &al.Title, &al.Year, &al.MasterID, &al.ReleaseID, &rating, &votes, &al.CoverURL); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			al.Rating = &v
		}
		if votes.Valid {
			v := int(votes.Int64)
			al.Votes = &v
		}
		albums = append(albums, al)
	}
	return albums, rows.Err()
}

// Write replaces the cached entry for the artist wholesale: the old rows
// are deleted and the new set inserted in one transaction, so a reader
// never sees a half-replaced album list.
func (s *Store) Write(ctx context.Context, artist Artist, albums []Album) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM artists WHERE name = ?`, artist.Name); err != nil {
		return fmt.Errorf("clearing cached artist: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	artistID := artist.ID
	if artistID == "" {
		artistID = uuid.New().String()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artists (id, name, musicbrainz_id, image_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, artistID, artist.Name, artist.MusicBrainzID, artist.ImageURL, now); err != nil {
		return fmt.Errorf("inserting cached artist: %w", err)
	}

	for i := range albums {
		al := &albums[i]
		if al.ID == "" {
			al.ID = uuid.New().String()
		}
		var rating sql.NullFloat64
		if al.Rating != nil {
			rating = sql.NullFloat64{Float64: *al.Rating, Valid: true}
		}
		var votes sql.NullInt64
		if al.Votes != nil {
			votes = sql.NullInt64{Int64: int64(*al.Votes), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO albums (id, artist_id, title, year, master_id, release_id, rating, votes, cover_url, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, al.ID, artistID, al.Title, al.Year, al.MasterID, al.ReleaseID, rating, votes, al.CoverURL, now); err != nil {
			return fmt.Errorf("inserting cached album %s: %w", al.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache write: %w", err)
	}
	s.logger.Debug("cache entry written", "artist", artist.Name, "albums", len(albums))
	return nil
}
