package workerlock

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kallsen-dev/chatforge/internal/busfile"
)

// lockPayload is the contents of leader.lock (spec.md §4.6).
type lockPayload struct {
	PID       int    `json:"pid"`
	Role      string `json:"role"`
	Instance  string `json:"instance"`
	StartedMS int64  `json:"started_ms"`
}

// heartbeatPayload is the contents of leader_heartbeat.json, rewritten
// atomically by whichever process currently holds the lock.
type heartbeatPayload struct {
	HeartbeatMS int64  `json:"heartbeat_ms"`
	PID         int    `json:"pid"`
	Role        string `json:"role"`
	Instance    string `json:"instance"`
}

// LeaderLock implements active/standby election for a worker instance
// (spec.md §4.6 "Active/standby"): one atomic-create lockfile plus a
// heartbeat file whose age gates stale-lock takeover.
type LeaderLock struct {
	lockPath string
	hbPath   string
	ttl      time.Duration
	role     string
	instance string

	isLeader bool
}

// NewLeaderLock builds a LeaderLock for one worker instance. ttl is the
// heartbeat staleness window (WORKER_LOCK_TTL_SEC).
func NewLeaderLock(lockPath, hbPath string, ttl time.Duration, role, instance string) *LeaderLock {
	return &LeaderLock{lockPath: lockPath, hbPath: hbPath, ttl: ttl, role: role, instance: instance}
}

// IsLeader reports the last-known leadership state without touching disk.
func (l *LeaderLock) IsLeader() bool { return l.isLeader }

// TryAcquire attempts to become leader: it first tries an exclusive create
// of the lock file, and if that fails because the lock already exists,
// steals it iff the heartbeat file is missing or older than ttl. Returns
// whether this call made (or kept) the process leader.
func (l *LeaderLock) TryAcquire() (bool, error) {
	payload := lockPayload{PID: os.Getpid(), Role: l.role, Instance: l.instance, StartedMS: time.Now().UnixMilli()}

	if err := tryCreateLock(l.lockPath, payload); err == nil {
		l.isLeader = true
		return true, nil
	} else if !os.IsExist(err) {
		return false, fmt.Errorf("workerlock: create lock %s: %w", l.lockPath, err)
	}

	if l.heartbeatAge() <= l.ttl {
		l.isLeader = false
		return false, nil
	}

	// Heartbeat is stale (or absent): best-effort remove both files, then
	// race to recreate the lock. Losing the race just means another
	// process got there first, which is fine.
	_ = os.Remove(l.lockPath)
	_ = os.Remove(l.hbPath)
	if err := tryCreateLock(l.lockPath, payload); err != nil {
		l.isLeader = false
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("workerlock: steal lock %s: %w", l.lockPath, err)
	}
	l.isLeader = true
	return true, nil
}

// Heartbeat writes the heartbeat file iff this process currently believes
// it is leader. Callers should gate calls on their own cadence timer.
func (l *LeaderLock) Heartbeat() error {
	if !l.isLeader {
		return nil
	}
	return busfile.AtomicWriteJSON(l.hbPath, heartbeatPayload{
		HeartbeatMS: time.Now().UnixMilli(), PID: os.Getpid(), Role: l.role, Instance: l.instance,
	})
}

// StillMine verifies the on-disk lock still names this process's pid,
// demoting isLeader to false if another process has taken over (spec.md
// §4.6: "leader verifies leader.lock still names its pid; if not, demote").
func (l *LeaderLock) StillMine() bool {
	if !l.isLeader {
		return false
	}
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		l.isLeader = false
		return false
	}
	var p lockPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PID != os.Getpid() {
		l.isLeader = false
		return false
	}
	return true
}

// Release best-effort removes both lock files iff this process is leader.
func (l *LeaderLock) Release() {
	if !l.isLeader {
		return
	}
	_ = os.Remove(l.lockPath)
	_ = os.Remove(l.hbPath)
	l.isLeader = false
}

// heartbeatAge returns how long ago the heartbeat file was last written, or
// a very large duration if it is missing or unreadable (spec.md §4.6).
func (l *LeaderLock) heartbeatAge() time.Duration {
	data, err := os.ReadFile(l.hbPath)
	if err != nil {
		return time.Duration(1<<62 - 1)
	}
	var hb heartbeatPayload
	if err := json.Unmarshal(data, &hb); err != nil || hb.HeartbeatMS <= 0 {
		return time.Duration(1<<62 - 1)
	}
	age := time.Now().UnixMilli() - hb.HeartbeatMS
	if age < 0 {
		age = 0
	}
	return time.Duration(age) * time.Millisecond
}
