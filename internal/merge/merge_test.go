package merge

import (
	"testing"
)

func rec(artist, album, collectionID string, source Source) Recommendation {
	return Recommendation{
		Artist:       artist,
		Album:        album,
		CollectionID: collectionID,
		Source:       source,
		Status:       StatusNeutral,
	}
}

func TestDedupByNameKey(t *testing.T) {
	a := []Recommendation{rec("Radiohead", "OK Computer", "5", SourceHistory)}
	b := []Recommendation{rec("  radiohead ", "ok computer", "", SourceArtist)}

	merged := Lists(a, b, nil)
	if len(merged) != 1 {
		t.Fatalf("expected 1 item, got %d", len(merged))
	}
	if merged[0].Source != SourceHistory {
		t.Errorf("first-seen must win, got source %s", merged[0].Source)
	}
}

func TestDedupByCollectionKey(t *testing.T) {
	a := []Recommendation{rec("Radiohead", "OK Computer", "5", SourceHistory)}
	c := []Recommendation{rec("Radiohead", "OK Computer (Remastered)", "5", SourceMixed)}

	merged := Lists(a, nil, c)
	if len(merged) != 1 {
		t.Fatalf("expected 1 item, got %d", len(merged))
	}
}

func TestNoSharedKeyKeepsBoth(t *testing.T) {
	a := []Recommendation{rec("Radiohead", "OK Computer", "5", SourceHistory)}
	b := []Recommendation{rec("Portishead", "Dummy", "9", SourceArtist)}

	merged := Lists(a, b, nil)
	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %d", len(merged))
	}
}

func TestRoundRobinOrder(t *testing.T) {
	a := []Recommendation{
		rec("A1", "x", "", SourceHistory),
		rec("A2", "x", "", SourceHistory),
	}
	b := []Recommendation{
		rec("B1", "x", "", SourceArtist),
		rec("B2", "x", "", SourceArtist),
	}
	c := []Recommendation{
		rec("C1", "x", "", SourceMixed),
	}

	merged := Lists(a, b, c)
	want := []string{"A1", "C1", "B1", "A2", "B2"}
	if len(merged) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(merged))
	}
	for i, artist := range want {
		if merged[i].Artist != artist {
			t.Errorf("position %d: got %s, want %s", i, merged[i].Artist, artist)
		}
	}
}

func TestPrimaryWinsOverLaterDuplicates(t *testing.T) {
	a := []Recommendation{
		rec("A1", "x", "", SourceHistory),
		rec("Shared", "album", "", SourceHistory),
	}
	c := []Recommendation{
		rec("Shared", "album", "", SourceMixed),
	}

	// "Shared" appears at index 0 of the secondary list and index 1 of
	// the primary; the secondary copy is taken first because it shows up
	// at an earlier round-robin index.
	merged := Lists(a, nil, c)
	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %d", len(merged))
	}
	if merged[1].Source != SourceMixed {
		t.Errorf("expected the earlier-index copy to win, got %s", merged[1].Source)
	}
}

func TestEmptyLists(t *testing.T) {
	if merged := Lists(nil, nil, nil); len(merged) != 0 {
		t.Fatalf("expected empty merge, got %d items", len(merged))
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNeutral, StatusFavorite, StatusDisliked, StatusOwned} {
		if !s.Valid() {
			t.Errorf("%s must be valid", s)
		}
	}
	if Status("loved").Valid() {
		t.Error("unknown status must be invalid")
	}
}
