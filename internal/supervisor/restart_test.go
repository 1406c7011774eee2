package supervisor

import (
	"testing"
	"time"
)

func TestRestartBudgetAllowsUpToMaxThenRefuses(t *testing.T) {
	b := newRestartBudget(2, 60)
	now := time.Now()

	if !b.Allow(now) {
		t.Fatal("first restart should be allowed")
	}
	if !b.Allow(now) {
		t.Fatal("second restart should be allowed")
	}
	if b.Allow(now) {
		t.Fatal("third restart within the window should be refused")
	}
}

func TestRestartBudgetForgetsEntriesOutsideWindow(t *testing.T) {
	b := newRestartBudget(1, 10)
	start := time.Now()

	if !b.Allow(start) {
		t.Fatal("first restart should be allowed")
	}
	if b.Allow(start.Add(5 * time.Second)) {
		t.Fatal("second restart inside the window should be refused")
	}
	if !b.Allow(start.Add(11 * time.Second)) {
		t.Fatal("restart after the window elapses should be allowed again")
	}
}
