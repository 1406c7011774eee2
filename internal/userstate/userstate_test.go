package userstate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	statePath := filepath.Join(dir, "user_state.json")
	ledgerPath := filepath.Join(dir, "points_ledger.jsonl")
	s, err := Open(statePath, ledgerPath, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, statePath, ledgerPath
}

func TestTouchAwardsAndLedgers(t *testing.T) {
	s, _, ledgerPath := openTestStore(t)

	if err := s.Touch("twitch:a", "twitch", 1000, 5, "_chat", "chat message"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if got := s.Points("twitch:a"); got != 5 {
		t.Fatalf("want 5 points, got %d", got)
	}

	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if !strings.Contains(string(data), `"delta":5`) {
		t.Fatalf("ledger missing delta entry: %s", data)
	}
}

func TestSpendRejectsInsufficientFunds(t *testing.T) {
	s, _, _ := openTestStore(t)
	_ = s.Touch("twitch:a", "twitch", 1000, 10, "_chat", "")

	ok, err := s.Spend("twitch:a", "twitch", 1001, 50, "!roll", "slots", "cost")
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if ok {
		t.Fatal("spend should fail: insufficient funds")
	}
	if got := s.Points("twitch:a"); got != 10 {
		t.Fatalf("balance should be unchanged, got %d", got)
	}

	ok, err = s.Spend("twitch:a", "twitch", 1001, 10, "!roll", "slots", "cost")
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if !ok {
		t.Fatal("spend should succeed: exact balance")
	}
	if got := s.Points("twitch:a"); got != 0 {
		t.Fatalf("want 0 after exact spend, got %d", got)
	}
}

func TestApplyNetClampsAtZero(t *testing.T) {
	s, _, _ := openTestStore(t)
	_ = s.Touch("twitch:a", "twitch", 1000, 10, "_chat", "")

	if err := s.ApplyNet("twitch:a", "twitch", 1001, -50, "!slots", "slots", "loss"); err != nil {
		t.Fatalf("applynet: %v", err)
	}
	if got := s.Points("twitch:a"); got != 0 {
		t.Fatalf("points should clamp at 0, got %d", got)
	}
}

func TestCooldownStampAndLookup(t *testing.T) {
	s, _, _ := openTestStore(t)
	if got := s.LastExec("twitch:a", "!roll"); got != 0 {
		t.Fatalf("want 0 for never-executed command, got %d", got)
	}
	s.StampExec("twitch:a", "!roll", 500)
	if got := s.LastExec("twitch:a", "!roll"); got != 500 {
		t.Fatalf("want 500, got %d", got)
	}
}

func TestEarningTickAdvancesByWholeMinutesOnly(t *testing.T) {
	s, _, _ := openTestStore(t)
	_ = s.Touch("twitch:a", "twitch", 1000, 0, "_chat", "")

	e := Earning{ActiveWindowSeconds: 300, PointsPerMinute: 2}

	// Only 90s elapsed: 1 whole minute awarded, last_award_ts advances by
	// exactly 60s (not to now), leaving 30s of remainder for next tick.
	awarded, err := s.EarningTick(1090, e, "twitch")
	if err != nil {
		t.Fatalf("earningtick: %v", err)
	}
	if awarded != 1 {
		t.Fatalf("want 1 user awarded, got %d", awarded)
	}
	if got := s.Points("twitch:a"); got != 2 {
		t.Fatalf("want 2 points after 1 minute, got %d", got)
	}
	if got := s.users["twitch:a"].LastAwardTS; got != 1060 {
		t.Fatalf("want last_award_ts=1060, got %d", got)
	}

	// 30s later (now=1120): only 60s total elapsed since last_award_ts=1060,
	// so exactly 1 more minute is awarded, no drift accumulated.
	awarded, err = s.EarningTick(1120, e, "twitch")
	if err != nil {
		t.Fatalf("earningtick: %v", err)
	}
	if awarded != 1 {
		t.Fatalf("want 1 user awarded on second tick, got %d", awarded)
	}
	if got := s.Points("twitch:a"); got != 4 {
		t.Fatalf("want 4 points total, got %d", got)
	}
}

func TestEarningTickSkipsInactiveUsers(t *testing.T) {
	s, _, _ := openTestStore(t)
	_ = s.Touch("twitch:a", "twitch", 0, 0, "_chat", "")

	e := Earning{ActiveWindowSeconds: 60, PointsPerMinute: 5}
	awarded, err := s.EarningTick(120, e, "twitch")
	if err != nil {
		t.Fatalf("earningtick: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("user outside active window should not be awarded, got %d", awarded)
	}
}

func TestFlushOnlyWritesWhenDirty(t *testing.T) {
	s, statePath, _ := openTestStore(t)
	if s.Dirty() {
		t.Fatal("freshly opened store should not be dirty")
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Fatal("flush with no mutation should not create a file")
	}

	_ = s.Touch("twitch:a", "twitch", 1, 1, "_chat", "")
	if !s.Dirty() {
		t.Fatal("store should be dirty after a mutation")
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if s.Dirty() {
		t.Fatal("flush should clear the dirty flag")
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("expected state file to exist after flush: %v", err)
	}
}
