package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T, reloadCount *atomic.Int32) (*Service, string, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(path, func(_ context.Context) error {
		reloadCount.Add(1)
		return nil
	}, testLogger())
	svc.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)
	time.Sleep(100 * time.Millisecond) // let the watcher initialize
	return svc, path, cancel
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestConfigWriteTriggersReload(t *testing.T) {
	var reloads atomic.Int32
	_, path, cancel := newTestService(t, &reloads)
	defer cancel()

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return reloads.Load() == 1 }) {
		t.Fatalf("expected 1 reload, got %d", reloads.Load())
	}
}

func TestRapidWritesCoalesce(t *testing.T) {
	var reloads atomic.Int32
	_, path, cancel := newTestService(t, &reloads)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !waitFor(t, 2*time.Second, func() bool { return reloads.Load() >= 1 }) {
		t.Fatalf("expected a reload, got %d", reloads.Load())
	}
	// Allow a settled window; the burst must have coalesced.
	time.Sleep(200 * time.Millisecond)
	if got := reloads.Load(); got > 2 {
		t.Errorf("expected the burst to coalesce, got %d reloads", got)
	}
}

func TestUnrelatedFileIgnored(t *testing.T) {
	var reloads atomic.Int32
	_, path, cancel := newTestService(t, &reloads)
	defer cancel()

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := reloads.Load(); got != 0 {
		t.Errorf("expected no reloads for unrelated file, got %d", got)
	}
}
