package ingestor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/record"
)

func TestNormalizeAndEmitAppendsOnlySurvivingEvents(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.inbox.jsonl")

	msgs := []RawMessage{
		{Type: "chat", TS: 1, Platform: "twitch", Message: "hello", User: map[string]any{"name": "a"}},
		{Type: "chat", TS: 2, Platform: "twitch", Message: "bot says hi", User: map[string]any{"name": "b", "isBot": true}},
		{Type: "follow", TS: 3, Platform: "twitch", User: map[string]any{"name": "c"}},
		{Type: "like", TS: 4, Platform: "twitch", User: map[string]any{"name": "d"}},
	}

	emitted, err := NormalizeAndEmit(eventsPath, msgs, 1000)
	if err != nil {
		t.Fatalf("normalize and emit: %v", err)
	}
	if emitted != 2 {
		t.Fatalf("want 2 events emitted (chat + like), got %d", emitted)
	}

	events, _, err := busfile.ReadSince(eventsPath, 0, record.DecodeEvent)
	if err != nil {
		t.Fatalf("read back events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 persisted events, got %d", len(events))
	}
	if events[0].Text != "hello" {
		t.Fatalf("want first event text 'hello', got %+v", events[0])
	}
	if events[1].Type != "like" {
		t.Fatalf("want second event type 'like', got %+v", events[1])
	}
}

func TestTailerJSONLModeAdvancesCursor(t *testing.T) {
	dir := t.TempDir()
	chatFile := filepath.Join(dir, "chat.jsonl")
	if err := os.WriteFile(chatFile, []byte(""), 0o644); err != nil {
		t.Fatalf("create chat file: %v", err)
	}

	tailer, err := NewTailer(chatFile, FeedOffsets{}, false)
	if err != nil {
		t.Fatalf("new tailer: %v", err)
	}

	line := `{"type":"chat","ts":1,"platform":"twitch","message":"hi","user":{"name":"a"}}` + "\n"
	if err := appendRaw(chatFile, line); err != nil {
		t.Fatalf("append raw: %v", err)
	}

	msgs, err := tailer.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Message != "hi" {
		t.Fatalf("want 1 message 'hi', got %+v", msgs)
	}

	if tailer.Offsets().ChatFeedOffsetBytes != int64(len(line)) {
		t.Fatalf("want offset advanced to %d, got %d", len(line), tailer.Offsets().ChatFeedOffsetBytes)
	}

	// A second poll with no new data should return nothing.
	msgs, err = tailer.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("want no new messages, got %d", len(msgs))
	}
}

func appendRaw(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
