package cache

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aficcion/vinylbe/internal/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

func sampleAlbums() []Album {
	return []Album{
		{Title: "OK Computer", Year: "1997", MasterID: "6501", Rating: ptr(4.64), Votes: ptr(2841), CoverURL: "https://i.discogs.com/ok.jpg"},
		{Title: "Kid A", Year: "2000", MasterID: "6479", Rating: ptr(4.42), Votes: ptr(1930)},
		{Title: "Pablo Honey", Year: "1993", MasterID: "6502", Rating: ptr(3.71), Votes: ptr(995)},
	}
}

func TestRoundTrip(t *testing.T) {
	store := NewStore(setupDB(t), testLogger(), DefaultTTL)
	ctx := context.Background()

	artist := Artist{Name: "Radiohead", MusicBrainzID: "a74b1b7f", ImageURL: "https://i.discogs.com/rh.jpg"}
	if err := store.Write(ctx, artist, sampleAlbums()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, albums, ok := store.Read(ctx, "Radiohead")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.MusicBrainzID != "a74b1b7f" {
		t.Errorf("mbid = %s, want a74b1b7f", got.MusicBrainzID)
	}
	if len(albums) != 3 {
		t.Fatalf("expected 3 albums, got %d", len(albums))
	}
	// Ordered by rating then votes descending.
	want := []string{"OK Computer", "Kid A", "Pablo Honey"}
	for i, title := range want {
		if albums[i].Title != title {
			t.Errorf("position %d: got %s, want %s", i, albums[i].Title, title)
		}
	}
	if albums[0].Rating == nil || *albums[0].Rating != 4.64 {
		t.Errorf("rating = %v, want 4.64", albums[0].Rating)
	}
}

func TestReadIsCaseInsensitive(t *testing.T) {
	store := NewStore(setupDB(t), testLogger(), DefaultTTL)
	ctx := context.Background()

	if err := store.Write(ctx, Artist{Name: "Radiohead"}, sampleAlbums()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, _, ok := store.Read(ctx, "radiohead"); !ok {
		t.Error("expected hit for lower-cased name")
	}
	if _, _, ok := store.Read(ctx, "RADIOHEAD"); !ok {
		t.Error("expected hit for upper-cased name")
	}
}

func TestMiss(t *testing.T) {
	store := NewStore(setupDB(t), testLogger(), DefaultTTL)
	if _, _, ok := store.Read(context.Background(), "Nobody"); ok {
		t.Fatal("expected miss for unknown artist")
	}
}

func TestStaleEntryIsAMiss(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db, testLogger(), DefaultTTL)
	ctx := context.Background()

	if err := store.Write(ctx, Artist{Name: "Radiohead"}, sampleAlbums()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Age the entry past the TTL.
	old := time.Now().UTC().Add(-8 * 24 * time.Hour).Format(time.RFC3339)
	if _, err := db.Exec(`UPDATE artists SET updated_at = ?`, old); err != nil {
		t.Fatalf("aging entry: %v", err)
	}

	if _, _, ok := store.Read(ctx, "Radiohead"); ok {
		t.Fatal("expected stale entry to read as a miss")
	}
}

func TestWriteReplacesWholesale(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db, testLogger(), DefaultTTL)
	ctx := context.Background()

	if err := store.Write(ctx, Artist{Name: "Radiohead"}, sampleAlbums()); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	replacement := []Album{{Title: "In Rainbows", Year: "2007", MasterID: "21520", Rating: ptr(4.6), Votes: ptr(2100)}}
	if err := store.Write(ctx, Artist{Name: "Radiohead"}, replacement); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	_, albums, ok := store.Read(ctx, "Radiohead")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(albums) != 1 {
		t.Fatalf("expected the old album set to be replaced, got %d albums", len(albums))
	}
	if albums[0].Title != "In Rainbows" {
		t.Errorf("got %s, want In Rainbows", albums[0].Title)
	}
}

func TestWriteLeavesNoOrphanedAlbumRows(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db, testLogger(), DefaultTTL)
	ctx := context.Background()

	// The delete in Write relies on the albums foreign key cascading, so
	// foreign_keys must actually be enabled on the connection.
	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Fatal("foreign_keys pragma is off")
	}

	if err := store.Write(ctx, Artist{Name: "Radiohead"}, sampleAlbums()); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	replacement := []Album{{Title: "In Rainbows", Year: "2007", MasterID: "21520", Rating: ptr(4.6), Votes: ptr(2100)}}
	if err := store.Write(ctx, Artist{Name: "Radiohead"}, replacement); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	// Count across the whole table, not via the fresh artist id: rows
	// orphaned by the replaced artist would be invisible to Read.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&count); err != nil {
		t.Fatalf("counting album rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 album row after replace, got %d", count)
	}
}

func TestClosedDatabaseReadsAsMiss(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db, testLogger(), DefaultTTL)
	db.Close()

	if _, _, ok := store.Read(context.Background(), "Radiohead"); ok {
		t.Fatal("expected miss when the datastore is unreachable")
	}
}
