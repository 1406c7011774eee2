// Package record defines the JSON wire records exchanged over the bus
// (spec.md §6). Every record carries a "type" discriminator; decoding is
// permissive — unknown fields are ignored and missing optional fields take
// their zero value, so older and newer writers can share a bus file.
package record

// Tier is the ordered permission class of a chat user (spec.md §3).
type Tier int

const (
	TierEveryone Tier = iota
	TierSub
	TierVIP
	TierMod
	TierBroadcaster
)

var tierNames = map[string]Tier{
	"everyone":    TierEveryone,
	"sub":         TierSub,
	"vip":         TierVIP,
	"mod":         TierMod,
	"broadcaster": TierBroadcaster,
}

// ParseTier maps a lowercase tier name to its ordinal. Unknown names map to
// TierEveryone, the lowest tier, so a malformed config never grants more
// access than it should.
func ParseTier(s string) Tier {
	if t, ok := tierNames[s]; ok {
		return t
	}
	return TierEveryone
}

func (t Tier) String() string {
	for name, v := range tierNames {
		if v == t {
			return name
		}
	}
	return "everyone"
}

// EventType is the kind of a normalised chat event (spec.md §3).
type EventType string

const (
	EventChat  EventType = "chat"
	EventLike  EventType = "like"
	EventShare EventType = "share"
)

// Event is produced by the ingestor and consumed by the router.
type Event struct {
	Type       string `json:"type"`
	TS         int64  `json:"ts"`
	Platform   string `json:"platform"`
	UserKey    string `json:"user_key"`
	ReplyName  string `json:"reply_name"`
	Tier       string `json:"tier"`
	Event      string `json:"event"`
	Text       string `json:"text"`
	EventSub   string `json:"event_sub,omitempty"`
}

// Task is dispatched by the router to a worker's inbox.
type Task struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	TS        int64  `json:"ts"`
	Bot       string `json:"bot"`
	Action    string `json:"action"`
	Command   string `json:"command"`
	Args      string `json:"args"`
	Platform  string `json:"platform"`
	ReplyName string `json:"reply_name"`
	UserKey   string `json:"user_key"`
	UserTier  string `json:"user_tier"`

	// Gamble-only extras (spec.md §3 Task).
	Bet              int            `json:"bet,omitempty"`
	AvailablePoints  int            `json:"available_points,omitempty"`
	SlotsConfig      map[string]any `json:"slots_config,omitempty"`
}

// WorkerReply is appended by a worker to its own outbox.
type WorkerReply struct {
	Type          string         `json:"type"`
	TaskID        string         `json:"task_id"`
	TS            int64          `json:"ts"`
	Messages      []string       `json:"messages,omitempty"`
	OverlayEvents []OverlayBlob  `json:"overlay_events,omitempty"`
	BlockingMS    int            `json:"blocking_ms,omitempty"`
	Game          map[string]any `json:"game,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// OverlayBlob is the inline overlay-event shape embedded in a worker reply,
// forwarded by the router to overlay.outbox with a synthesized event_id.
type OverlayBlob struct {
	Overlay string         `json:"overlay"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// WorkerAck is appended by a worker to its own ack file.
type WorkerAck struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	TS     int64  `json:"ts"`
	Status string `json:"status"` // "ok" | "error"
	Error  string `json:"error,omitempty"`
	Trace  string `json:"trace,omitempty"`
}

// ReplyIntent is a user-facing message queued for the emitter.
type ReplyIntent struct {
	Type      string `json:"type"`
	TS        int64  `json:"ts"`
	Platform  string `json:"platform"`
	ReplyName string `json:"reply_name"`
	Text      string `json:"text"`
	Bot       string `json:"bot"`
}

// OverlayEvent is a payload to be appended to an overlay consumer file.
type OverlayEvent struct {
	Type    string         `json:"type"`
	TS      int64          `json:"ts"`
	Overlay string         `json:"overlay"`
	Event   string         `json:"event"`
	EventID string         `json:"event_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

// DeadLetter wraps an orphaned worker reply for deadletter.<bot>.jsonl.
type DeadLetter struct {
	Type   string      `json:"type"`
	TS     int64       `json:"ts"`
	Bot    string      `json:"bot"`
	Reason string      `json:"reason"`
	Reply  WorkerReply `json:"reply"`
}
