package record

import "testing"

func TestNormalizeUserKey(t *testing.T) {
	cases := []struct {
		raw, platform, want string
	}{
		{"alice", "twitch", "twitch:alice"},
		{"twitch:alice", "twitch", "twitch:alice"},
		{"kick:bob", "twitch", "twitch:kick:bob"},
	}
	for _, c := range cases {
		got := NormalizeUserKey(c.raw, c.platform)
		if got != c.want {
			t.Errorf("NormalizeUserKey(%q, %q) = %q, want %q", c.raw, c.platform, got, c.want)
		}
	}
}

func TestNormalizeUserKeyIdempotent(t *testing.T) {
	for _, raw := range []string{"alice", "twitch:alice", "kick:bob"} {
		once := NormalizeUserKey(raw, "twitch")
		twice := NormalizeUserKey(once, "twitch")
		if once != twice {
			t.Errorf("normalize not idempotent for %q: once=%q twice=%q", raw, once, twice)
		}
	}
}
