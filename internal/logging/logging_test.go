package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

func TestInitCreatesComponentAndLatestLogFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := Init("router", routerconfig.Logging{Dir: dir, Level: "debug"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	log.Info("hello", "key", "value")

	if _, err := os.Stat(filepath.Join(dir, "router.log")); err != nil {
		t.Fatalf("want router.log to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "latest.log")); err != nil {
		t.Fatalf("want latest.log to exist: %v", err)
	}
}

func TestLevelFromStringDefaultsToInfo(t *testing.T) {
	if levelFromString("") != slog.LevelInfo {
		t.Fatal("empty level string should default to info")
	}
	if levelFromString("bogus") != slog.LevelInfo {
		t.Fatal("unrecognized level string should default to info")
	}
	if levelFromString("debug") != slog.LevelDebug {
		t.Fatal("debug level string should map to slog.LevelDebug")
	}
}
