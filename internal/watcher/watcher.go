// Package watcher watches the configuration file and triggers a reload
// when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Service watches one config file, coalescing rapid write events into a
// single reload call.
type Service struct {
	path     string
	reloadFn func(ctx context.Context) error
	logger   *slog.Logger
	debounce time.Duration
}

// NewService creates a config-file watcher. reloadFn runs after the
// debounce window elapses with no further changes.
func NewService(path string, reloadFn func(ctx context.Context) error, logger *slog.Logger) *Service {
	return &Service{
		path:     path,
		reloadFn: reloadFn,
		logger:   logger.With("component", "config-watcher"),
		debounce: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Start blocks until ctx is canceled. The parent directory is watched
// rather than the file itself, so editors that replace the file via
// rename keep triggering reloads.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, config changes need a restart", "error", err)
		<-ctx.Done()
		return
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		s.logger.Warn("cannot watch config directory", "dir", dir, "error", err)
		<-ctx.Done()
		return
	}
	s.logger.Info("watching config file", "path", s.path)

	// Debounce timer starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("config watcher stopping")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			reloadPending = true

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if reloadPending {
				reloadPending = false
				s.logger.Info("config file changed, reloading")
				if err := s.reloadFn(ctx); err != nil {
					s.logger.Error("config reload failed", "error", err)
				}
			}
		}
	}
}

func (s *Service) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Clean(ev.Name) == filepath.Clean(s.path)
}
