package gambleworker

import (
	"encoding/json"
	"testing"

	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/slotsconfig"
)

func snapshotFor(t *testing.T, cfg slotsconfig.Config) map[string]any {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	return m
}

func TestHandleDrawsSymbolsFromTaskReelSet(t *testing.T) {
	cfg := slotsconfig.Config{Reels: []string{"🍒"}, DefaultLossMult: 0}
	task := record.Task{TaskID: "g_abc", SlotsConfig: snapshotFor(t, cfg)}

	sp := NewSpinner(1)
	result, err := sp.Handle(task)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	symbols, ok := result.Game["symbols"].([]any)
	if !ok || len(symbols) != ReelCount {
		t.Fatalf("want %d symbols, got %#v", ReelCount, result.Game["symbols"])
	}
	for _, s := range symbols {
		if s != "🍒" {
			t.Fatalf("single-reel config should only ever draw 🍒, got %v", s)
		}
	}
	if result.BlockingMS < spinBlockingBaseMS {
		t.Fatalf("blocking_ms should be at least the base, got %d", result.BlockingMS)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("want one spin-line message, got %d", len(result.Messages))
	}
}

func TestHandleRejectsEmptyReelSet(t *testing.T) {
	task := record.Task{TaskID: "g_empty", SlotsConfig: snapshotFor(t, slotsconfig.Config{})}
	sp := NewSpinner(1)
	if _, err := sp.Handle(task); err == nil {
		t.Fatal("expected an error for an empty reel set")
	}
}

func TestHandleRejectsUndecodableSnapshot(t *testing.T) {
	task := record.Task{TaskID: "g_bad", SlotsConfig: map[string]any{"reels": "not-an-array"}}
	sp := NewSpinner(1)
	if _, err := sp.Handle(task); err == nil {
		t.Fatal("expected a decode error for a malformed slots_config snapshot")
	}
}
