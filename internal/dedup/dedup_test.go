package dedup

import "testing"

func TestExactWindowRejectsIdenticalTS(t *testing.T) {
	g := New()
	if g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100) {
		t.Fatal("first occurrence should not be a duplicate")
	}
	if !g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100) {
		t.Fatal("identical (key, ts) within 15s should be a duplicate")
	}
}

func TestLooseWindowRejectsNearSimultaneousDifferentTS(t *testing.T) {
	g := New()
	if g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100) {
		t.Fatal("first occurrence should not be a duplicate")
	}
	// Different ts, but within the 2s loose window -> still a duplicate.
	if !g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 101) {
		t.Fatal("near-simultaneous doubles within 2s should be rejected by the loose window")
	}
}

func TestDistinctKeysNeverCollide(t *testing.T) {
	g := New()
	if g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100) {
		t.Fatal("first occurrence should not be a duplicate")
	}
	if g.Seen("twitch", "twitch:b", "bob", "!roll", "50", 100) {
		t.Fatal("different user_key should not collide")
	}
	if g.Seen("twitch", "twitch:a", "alice", "!points", "", 100) {
		t.Fatal("different command should not collide")
	}
}

func TestLooseWindowExpiresAfter2s(t *testing.T) {
	g := New()
	g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100)
	// ts=103 is outside the loose window (2s) measured from ts=100, and a
	// distinct ts so the exact window does not match either.
	if g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 103) {
		t.Fatal("command repeated after the loose window elapsed should not be rejected")
	}
}

func TestExactWindowExpiresAfter15s(t *testing.T) {
	g := New()
	g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 100)
	// ts=116 is outside both windows.
	if g.Seen("twitch", "twitch:a", "alice", "!roll", "50", 116) {
		t.Fatal("command repeated well after both windows elapsed should not be rejected")
	}
}
