package emitter

import (
	"path/filepath"
	"strings"

	"github.com/kallsen-dev/chatforge/internal/busfile"
)

// overlayUser is the synthetic actor attributed to emitter-authored overlay
// append-file entries (spec.md §4.5).
type overlayUser struct {
	IsBot bool   `json:"isBot"`
	Name  string `json:"name"`
	Key   string `json:"key"`
}

var (
	chatManagerUser = overlayUser{IsBot: true, Name: "ChatManager", Key: "bot:chatmanager"}
	systemUser      = overlayUser{IsBot: true, Name: "SYSTEM", Key: "bot:system"}
)

// overlayChatEntry is one line appended to the overlay chat fallback file.
type overlayChatEntry struct {
	Type     string      `json:"type"`
	TS       int64       `json:"ts"`
	Platform string      `json:"platform"`
	Message  string      `json:"message"`
	User     overlayUser `json:"user"`
	Source   string      `json:"source"`
}

// overlayEventFileEntry is one line appended to the overlay events file;
// distinct from record.OverlayEvent (the bus-wire shape) because the
// append-file format additionally carries a synthetic "user" actor.
type overlayEventFileEntry struct {
	Type    string         `json:"type"`
	TS      int64          `json:"ts"`
	Overlay string         `json:"overlay"`
	Event   string         `json:"event"`
	EventID string         `json:"event_id"`
	Payload map[string]any `json:"payload,omitempty"`
	User    overlayUser    `json:"user"`
}

// normalizeOverlayChatPath redirects a configured chat overlay path away
// from the SSN JSON feed file it must never write into (spec.md §4.5): a
// ".json" target is rewritten to a sibling "overlay_additions.jsonl".
func normalizeOverlayChatPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return filepath.Join(filepath.Dir(path), "overlay_additions.jsonl")
	}
	return path
}

// appendOverlayChat appends one chat line to path and trims it to maxLines.
func appendOverlayChat(path string, ts int64, platform, message string, maxLines int) error {
	if err := busfile.Append(path, overlayChatEntry{
		Type: "chat", TS: ts, Platform: platform, Message: message, User: chatManagerUser, Source: "chatmanager",
	}); err != nil {
		return err
	}
	return busfile.TrimOverlayFile(path, maxLines)
}

// appendOverlayEvent appends one overlay event line to path and trims it.
func appendOverlayEvent(path string, ts int64, overlay, event, eventID string, payload map[string]any, maxLines int) error {
	if err := busfile.Append(path, overlayEventFileEntry{
		Type: "overlay_event", TS: ts, Overlay: overlay, Event: event, EventID: eventID, Payload: payload, User: systemUser,
	}); err != nil {
		return err
	}
	return busfile.TrimOverlayFile(path, maxLines)
}
