// Package ingestor tails the upstream unified chat feed (in either its
// single-document JSON form or a plain JSONL append form), normalises each
// message into a record.Event, and appends it to events.inbox (spec.md
// §4.2).
package ingestor

import (
	"fmt"
	"strings"

	"github.com/kallsen-dev/chatforge/internal/record"
)

// RawMessage is one upstream message in either feed format. Fields are
// intentionally loose (map[string]any) because the upstream schema is an
// external collaborator's — the ingestor's job is to tolerate whatever
// shape arrives, not to validate it.
type RawMessage struct {
	Type     string         `json:"type"`
	Event    string         `json:"event"`
	TS       int64          `json:"ts"`
	Platform string         `json:"platform"`
	Source   string         `json:"source"`
	Message  string         `json:"message"`
	Text     string         `json:"text"`
	User     map[string]any `json:"user"`
}

// platform returns the lowercased platform name, preferring Platform over
// the legacy Source alias.
func (m RawMessage) platform() string {
	p := m.Platform
	if p == "" {
		p = m.Source
	}
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		p = "unknown"
	}
	return p
}

// text returns Message, falling back to Text.
func (m RawMessage) text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Text
}

// isBot reports whether the message's user is bot-authored (spec.md §4.2:
// "drop bot-authored records").
func (m RawMessage) isBot() bool {
	v, _ := m.User["isBot"].(bool)
	return v
}

// detectTier derives tier from boolean flags, broadcaster outranking mod
// outranking vip outranking sub (spec.md §4.2).
func detectTier(user map[string]any) record.Tier {
	flag := func(keys ...string) bool {
		for _, k := range keys {
			if v, ok := user[k].(bool); ok && v {
				return true
			}
		}
		return false
	}
	switch {
	case flag("isBroadcaster", "isStreamer", "isOwner"):
		return record.TierBroadcaster
	case flag("isMod", "isModerator"):
		return record.TierMod
	case flag("isVip", "isVIP"):
		return record.TierVIP
	case flag("isSub", "isSubscriber", "subscriber"):
		return record.TierSub
	default:
		return record.TierEveryone
	}
}

// replyNameKeys is the fallback chain for deriving a display name (spec.md
// §4.2).
var replyNameKeys = []string{
	"name", "displayName", "username", "handle", "uniqueId",
	"nickname", "id", "userId", "uid",
}

// chooseReplyName returns the first non-empty value among replyNameKeys,
// then falls back to the tail of a "platform:name"-shaped key, then "User".
func chooseReplyName(user map[string]any) string {
	for _, k := range replyNameKeys {
		if s := stringField(user[k]); s != "" {
			return s
		}
	}
	if key := stringField(user["key"]); key != "" {
		if _, tail, found := strings.Cut(key, ":"); found && tail != "" {
			return tail
		}
		return key
	}
	return "User"
}

// stringField coerces a loosely-typed JSON value into a trimmed string;
// numeric ids come back as their decimal form.
func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	default:
		return ""
	}
}

// userKeyCandidateKeys is the fallback chain used when the user map carries
// no "key" field at all.
var userKeyCandidateKeys = []string{"id", "userId", "uid", "uniqueId", "name", "displayName", "username", "handle"}

// stableUserKey derives the platform-scoped user key (spec.md §3, §4.2).
func stableUserKey(platform string, user map[string]any) string {
	if raw := stringField(user["key"]); raw != "" {
		return record.NormalizeUserKey(raw, platform)
	}
	for _, k := range userKeyCandidateKeys {
		if v := stringField(user[k]); v != "" {
			return platform + ":" + v
		}
	}
	return platform + ":unknown"
}

// normalize converts one raw upstream message into a record.Event, or
// reports ok=false if it should be dropped (bot-authored, or not a
// chat/like/share type per spec.md §4.2).
func normalize(m RawMessage, now int64) (record.Event, bool) {
	if m.isBot() {
		return record.Event{}, false
	}

	platform := m.platform()
	rtype := strings.ToLower(m.Type)
	if rtype == "" {
		rtype = "chat"
	}
	if rtype != "chat" && rtype != "like" && rtype != "share" {
		return record.Event{}, false
	}

	ts := m.TS
	if ts == 0 {
		ts = now
	}

	return record.Event{
		Type:      rtype,
		TS:        ts,
		Platform:  platform,
		UserKey:   stableUserKey(platform, m.User),
		ReplyName: chooseReplyName(m.User),
		Tier:      detectTier(m.User).String(),
		Text:      m.text(),
		Event:     strings.ToLower(m.Event),
	}, true
}
