// Package recommend persists merged recommendations per owner, enforcing
// the sticky status rules: disliked and owned survive every regeneration,
// favorite survives with refreshed metadata, neutral is refreshed freely.
package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aficcion/vinylbe/internal/merge"
)

// ErrInvalidStatus is a contract violation, surfaced as a hard error
// rather than degraded away.
type ErrInvalidStatus struct {
	Status merge.Status
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid recommendation status %q", e.Status)
}

// ErrNotFound indicates no recommendation matched the given owner and id.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("recommendation %s not found", e.ID)
}

// Recommendation is one persisted recommendation row.
type Recommendation struct {
	ID        string
	Owner     string
	Artist    string
	Album     string
	MasterID  string
	Source    merge.Source
	Status    merge.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store reads and writes persisted recommendations.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger.With("component", "recommend")}
}

// Regenerate applies a fresh merged list for an owner. Existing rows keep
// their identity: disliked and owned rows are left untouched, favorite and
// neutral rows get their metadata refreshed, and unseen items are inserted
// as neutral. Nothing is ever deleted here.
func (s *Store) Regenerate(ctx context.Context, owner string, recs []merge.Recommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning regeneration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	var inserted, refreshed, kept int
	for _, rec := range recs {
		if rec.Artist == "" || rec.Album == "" {
			s.logger.Warn("skipping recommendation without identity", "artist", rec.Artist, "album", rec.Album)
			continue
		}
		source := rec.Source
		switch source {
		case merge.SourceHistory, merge.SourceArtist, merge.SourceMixed:
		default:
			source = merge.SourceMixed
		}

		var id string
		var status merge.Status
		err := tx.QueryRowContext(ctx, `
			SELECT id, status FROM recommendations
			WHERE owner = ? AND artist_name = ? AND album_title = ?
		`, owner, rec.Artist, rec.Album).Scan(&id, &status)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recommendations (id, owner, artist_name, album_title, master_id, source, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, uuid.New().String(), owner, rec.Artist, rec.Album, rec.CollectionID, source, merge.StatusNeutral, now); err != nil {
				return fmt.Errorf("inserting recommendation %s/%s: %w", rec.Artist, rec.Album, err)
			}
			inserted++
		case err != nil:
			return fmt.Errorf("looking up recommendation %s/%s: %w", rec.Artist, rec.Album, err)
		case status == merge.StatusDisliked || status == merge.StatusOwned:
			kept++
		default:
			// favorite keeps its status, neutral is simply refreshed
			if _, err := tx.ExecContext(ctx, `
				UPDATE recommendations SET master_id = ?, source = ?, updated_at = ? WHERE id = ?
			`, rec.CollectionID, source, now, id); err != nil {
				return fmt.Errorf("refreshing recommendation %s/%s: %w", rec.Artist, rec.Album, err)
			}
			refreshed++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing regeneration: %w", err)
	}
	s.logger.Info("recommendations regenerated",
		"owner", owner,
		"inserted", inserted,
		"refreshed", refreshed,
		"kept", kept,
	)
	return nil
}

// SetStatus changes one recommendation's status. An unknown status value
// is a hard error.
func (s *Store) SetStatus(ctx context.Context, owner, id string, status merge.Status) error {
	if !status.Valid() {
		return &ErrInvalidStatus{Status: status}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations SET status = ?, updated_at = ? WHERE id = ? AND owner = ?
	`, status, now, id, owner)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking status update: %w", err)
	}
	if affected == 0 {
		return &ErrNotFound{ID: id}
	}
	return nil
}

// ListForOwner returns all of an owner's recommendations regardless of
// status, newest first.
func (s *Store) ListForOwner(ctx context.Context, owner string) ([]Recommendation, error) {
	return s.list(ctx, `
		SELECT id, owner, artist_name, album_title, master_id, source, status, created_at, updated_at
		FROM recommendations WHERE owner = ?
		ORDER BY created_at DESC, artist_name, album_title
	`, owner)
}

// Favorites returns only the owner's favorite recommendations.
func (s *Store) Favorites(ctx context.Context, owner string) ([]Recommendation, error) {
	return s.list(ctx, `
		SELECT id, owner, artist_name, album_title, master_id, source, status, created_at, updated_at
		FROM recommendations WHERE owner = ? AND status = ?
		ORDER BY created_at DESC, artist_name, album_title
	`, owner, merge.StatusFavorite)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		var createdAt string
		var updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Owner, &r.Artist, &r.Album, &r.MasterID, &r.Source, &r.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if updatedAt.Valid {
			r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
