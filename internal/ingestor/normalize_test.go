package ingestor

import (
	"testing"

	"github.com/kallsen-dev/chatforge/internal/record"
)

func TestNormalizeDropsBotAuthoredRecords(t *testing.T) {
	m := RawMessage{Type: "chat", TS: 100, Platform: "twitch", Message: "hi", User: map[string]any{"isBot": true, "name": "some_bot"}}
	_, ok := normalize(m, 200)
	if ok {
		t.Fatal("bot-authored message should be dropped")
	}
}

func TestNormalizePassesOnlyChatLikeShare(t *testing.T) {
	cases := []struct {
		rtype string
		want  bool
	}{
		{"chat", true},
		{"like", true},
		{"share", true},
		{"follow", false},
		{"raid", false},
	}
	for _, c := range cases {
		m := RawMessage{Type: c.rtype, TS: 100, Platform: "twitch", User: map[string]any{"name": "alice"}}
		_, ok := normalize(m, 200)
		if ok != c.want {
			t.Errorf("type %q: ok=%v, want %v", c.rtype, ok, c.want)
		}
	}
}

func TestDetectTierPrecedence(t *testing.T) {
	cases := []struct {
		user map[string]any
		want record.Tier
	}{
		{map[string]any{"isBroadcaster": true, "isMod": true}, record.TierBroadcaster},
		{map[string]any{"isMod": true, "isVip": true}, record.TierMod},
		{map[string]any{"isVip": true, "isSub": true}, record.TierVIP},
		{map[string]any{"isSub": true}, record.TierSub},
		{map[string]any{}, record.TierEveryone},
	}
	for _, c := range cases {
		got := detectTier(c.user)
		if got != c.want {
			t.Errorf("detectTier(%+v) = %v, want %v", c.user, got, c.want)
		}
	}
}

func TestChooseReplyNameFallbackChain(t *testing.T) {
	cases := []struct {
		user map[string]any
		want string
	}{
		{map[string]any{"displayName": "DisplayOne"}, "DisplayOne"},
		{map[string]any{"username": "userfallback"}, "userfallback"},
		{map[string]any{"id": float64(12345)}, "12345"},
		{map[string]any{"key": "twitch:zed"}, "zed"},
		{map[string]any{}, "User"},
	}
	for _, c := range cases {
		got := chooseReplyName(c.user)
		if got != c.want {
			t.Errorf("chooseReplyName(%+v) = %q, want %q", c.user, got, c.want)
		}
	}
}

func TestStableUserKeyPrefersExplicitKeyThenNormalizes(t *testing.T) {
	got := stableUserKey("twitch", map[string]any{"key": "twitch:alice"})
	if got != "twitch:alice" {
		t.Fatalf("want no double-prefix, got %q", got)
	}
	got = stableUserKey("twitch", map[string]any{"key": "alice"})
	if got != "twitch:alice" {
		t.Fatalf("want prefixed, got %q", got)
	}
	got = stableUserKey("twitch", map[string]any{"id": float64(99)})
	if got != "twitch:99" {
		t.Fatalf("want id fallback, got %q", got)
	}
	got = stableUserKey("twitch", map[string]any{})
	if got != "twitch:unknown" {
		t.Fatalf("want unknown fallback, got %q", got)
	}
}
