package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_FileKeepsDebug(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "cursor-sync.log")

	logger, closer, err := newLogger(&stderr, slog.LevelWarn, file)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("collected settings", "keys", 3)
	logger.Warn("journal unavailable")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(stderr.String(), "collected settings") {
		t.Errorf("stderr has a debug record: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "journal unavailable") {
		t.Errorf("stderr = %q, want the warning", stderr.String())
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	for _, want := range []string{"level=DEBUG", "collected settings", "keys=3", "journal unavailable"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}

func TestNewLogger_Off(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := newLogger(&stderr, slog.LevelInfo, "off")
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("hello")
	if !strings.Contains(stderr.String(), "hello") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if _, ok := logger.Handler().(fanout); ok {
		t.Error("handler fans out with log.file off")
	}
}

func TestNewLogger_UnwritableDirFallsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	logger, closer, err := newLogger(&stderr, slog.LevelInfo, filepath.Join(blocker, "sub", "x.log"))
	if err == nil {
		t.Fatal("expected an error for a path below a regular file")
	}
	defer closer.Close()

	logger.Info("still logging")
	if !strings.Contains(stderr.String(), "still logging") {
		t.Errorf("stderr = %q, want console logging to keep working", stderr.String())
	}
}

func TestFanoutWithAttrs(t *testing.T) {
	var a, b bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).With("op", "push").WithGroup("gist")

	logger.Info("updated", "id", "g1")

	if a.Len() != 0 {
		t.Errorf("warn handler got %q", a.String())
	}
	if !strings.Contains(b.String(), "op=push") || !strings.Contains(b.String(), "gist.id=g1") {
		t.Errorf("debug handler got %q", b.String())
	}
}
