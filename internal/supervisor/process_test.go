package supervisor

import (
	"context"
	"testing"
	"time"
)

func TestStartRunsAndExitsCleanly(t *testing.T) {
	p := NewProcess(Spec{Name: "echo", Cmd: "sh", Args: []string{"-c", "echo hi"}})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Snapshot().State != StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := p.Snapshot()
	if snap.State != StateStopped {
		t.Fatalf("want stopped after a clean exit, got %s", snap.State)
	}
}

func TestStopTerminatesALongRunningProcess(t *testing.T) {
	p := NewProcess(Spec{Name: "sleeper", Cmd: "sh", Args: []string{"-c", "sleep 30"}})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return in time")
	}

	if snap := p.Snapshot(); snap.State != StateStopped {
		t.Fatalf("want stopped after Stop, got %s", snap.State)
	}
}

func TestCrashedReportsNonZeroExit(t *testing.T) {
	p := NewProcess(Spec{Name: "fail", Cmd: "sh", Args: []string{"-c", "exit 7"}})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !p.Crashed() {
		time.Sleep(10 * time.Millisecond)
	}

	if !p.Crashed() {
		t.Fatal("want a process exiting non-zero to report Crashed()")
	}
}
