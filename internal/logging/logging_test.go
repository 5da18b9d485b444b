package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_LevelSwap(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled when level is error")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled")
	}
}

func TestManager_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	cfg := Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
	}
	mgr, logger := NewManager(cfg)

	logger.Info("hello from test")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain data")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(Config{Level: "info", Format: "json"})
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("json") {
		t.Error("text and json should be valid")
	}
	if ValidFormat("xml") || ValidFormat("") {
		t.Error("xml and empty should be invalid")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}
