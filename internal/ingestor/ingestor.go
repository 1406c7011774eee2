package ingestor

import (
	"encoding/json"
	"fmt"

	"github.com/kallsen-dev/chatforge/internal/busfile"
)

// decodeRawMessage is the busfile.ReadSince decoder for the JSONL fallback
// mode: malformed/non-object lines are skipped, offset still advances
// (spec.md §4.1).
func decodeRawMessage(line []byte) (RawMessage, bool) {
	var m RawMessage
	if err := json.Unmarshal(line, &m); err != nil {
		return RawMessage{}, false
	}
	return m, true
}

// Tailer owns one chat_file's cursor state and auto-detects its format on
// every poll (spec.md §4.2: "Format is auto-detected by attempting JSON
// parse of entire file once per poll; falls back to JSONL on failure.").
type Tailer struct {
	ChatFile string

	cursor  *busfile.Cursor // JSONL fallback mode
	offsets FeedOffsets     // unified-feed mode
}

// NewTailer builds a Tailer seeded from persisted offsets. seedToEnd is
// honored only on first-ever start (when both cursor fields are zero).
func NewTailer(chatFile string, persisted FeedOffsets, seedToEnd bool) (*Tailer, error) {
	t := &Tailer{
		ChatFile: chatFile,
		cursor:   busfile.NewCursor(chatFile, persisted.ChatFeedOffsetBytes),
		offsets:  persisted,
	}
	if seedToEnd && persisted.ChatFeedOffsetBytes == 0 && persisted.FeedLastTS == 0 {
		if _, ok := tryReadUnifiedFeed(chatFile); ok {
			t.offsets.FeedLastTS = SeedUnifiedFeedWatermark(chatFile)
		} else if size, err := busfile.SeedToEnd(chatFile); err == nil {
			t.cursor = busfile.NewCursor(chatFile, size)
			t.offsets.ChatFeedOffsetBytes = size
		}
	}
	return t, nil
}

// Offsets returns the offsets document to persist after a poll (spec.md
// §6 offsets.ingestor.json).
func (t *Tailer) Offsets() FeedOffsets {
	t.offsets.ChatFeedOffsetBytes = t.cursor.Offset
	return t.offsets
}

// Poll reads whatever new messages are available, in whichever format the
// file currently parses as.
func (t *Tailer) Poll() ([]RawMessage, error) {
	if msgs, ok := ReadUnifiedFeed(t.ChatFile, &t.offsets); ok {
		return msgs, nil
	}

	msgs, err := busfile.Poll(t.cursor, decodeRawMessage)
	if err != nil {
		return nil, fmt.Errorf("ingestor: poll jsonl %s: %w", t.ChatFile, err)
	}
	return msgs, nil
}

// NormalizeAndEmit normalises each raw message and appends the surviving
// chat/like/share events to eventsPath in one append per message (spec.md
// §4.1: writers append full records in one call). Returns the count
// emitted.
func NormalizeAndEmit(eventsPath string, msgs []RawMessage, now int64) (int, error) {
	emitted := 0
	for _, m := range msgs {
		ev, ok := normalize(m, now)
		if !ok {
			continue
		}
		if err := busfile.Append(eventsPath, ev); err != nil {
			return emitted, fmt.Errorf("ingestor: append event: %w", err)
		}
		emitted++
	}
	return emitted, nil
}
