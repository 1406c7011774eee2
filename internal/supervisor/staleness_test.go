package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestIsStaleTrueWhenNewestMtimeOlderThanThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.inbox.jsonl")
	touch(t, path, time.Now().Add(-time.Hour))

	if !isStale([]string{path}, time.Now(), 30*time.Second) {
		t.Fatal("want stale for an mtime an hour old against a 30s threshold")
	}
}

func TestIsStaleFalseWhenRecentlyTouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.inbox.jsonl")
	touch(t, path, time.Now())

	if isStale([]string{path}, time.Now(), 30*time.Second) {
		t.Fatal("want not stale for a just-touched witness file")
	}
}

func TestIsStaleFalseWhenNoWitnessFilesExistYet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-written.jsonl")

	if isStale([]string{path}, time.Now(), 1*time.Second) {
		t.Fatal("want not stale when no witness file has ever been created")
	}
}

func TestHasBacklogWhenInboxOutpacesAck(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "gamble.inbox.jsonl")
	ack := filepath.Join(dir, "gamble.ack.jsonl")
	base := time.Now()
	touch(t, ack, base)
	touch(t, inbox, base.Add(time.Minute))

	if !hasBacklog(inbox, ack, 30*time.Second) {
		t.Fatal("want backlog when inbox is a minute ahead of ack past a 30s threshold")
	}
}

func TestHasBacklogFalseWhenAckKeepsUp(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "gamble.inbox.jsonl")
	ack := filepath.Join(dir, "gamble.ack.jsonl")
	base := time.Now()
	touch(t, inbox, base)
	touch(t, ack, base.Add(time.Second))

	if hasBacklog(inbox, ack, 30*time.Second) {
		t.Fatal("want no backlog when ack is at or after inbox")
	}
}
