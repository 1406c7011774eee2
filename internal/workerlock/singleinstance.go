// Package workerlock implements the two lock shapes a worker process can
// need (spec.md §4.6): a single-instance lock for payout-sensitive workers
// that must never double-run, and an active/standby leader lock with a
// heartbeat TTL for workers wrapping a singleton external client.
package workerlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned by AcquireSingleInstance when another live
// process already holds the lock.
var ErrAlreadyRunning = errors.New("workerlock: another instance is already running")

type singleInstancePayload struct {
	PID       int   `json:"pid"`
	StartedMS int64 `json:"started_ms"`
}

// SingleInstanceLock guards a worker that must never have two live copies
// at once (spec.md §4.6 "Single-instance").
type SingleInstanceLock struct {
	path string
}

// AcquireSingleInstance creates path exclusively. If path already exists and
// names a live pid, it returns ErrAlreadyRunning; if the named pid is dead,
// the stale lock file is removed and acquisition is retried once.
func AcquireSingleInstance(path string) (*SingleInstanceLock, error) {
	if err := tryCreateLock(path, singleInstancePayload{PID: os.Getpid(), StartedMS: nowMS()}); err == nil {
		return &SingleInstanceLock{path: path}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Lost a create race; try once more.
			if err := tryCreateLock(path, singleInstancePayload{PID: os.Getpid(), StartedMS: nowMS()}); err != nil {
				return nil, fmt.Errorf("workerlock: acquire %s: %w", path, err)
			}
			return &SingleInstanceLock{path: path}, nil
		}
		return nil, fmt.Errorf("workerlock: read %s: %w", path, err)
	}

	var existing singleInstancePayload
	_ = json.Unmarshal(data, &existing)
	if existing.PID > 0 && pidAlive(existing.PID) {
		return nil, ErrAlreadyRunning
	}

	// Stale lock: the pid that created it is gone. Remove and recreate.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("workerlock: remove stale lock %s: %w", path, err)
	}
	if err := tryCreateLock(path, singleInstancePayload{PID: os.Getpid(), StartedMS: nowMS()}); err != nil {
		return nil, fmt.Errorf("workerlock: acquire %s after stale removal: %w", path, err)
	}
	return &SingleInstanceLock{path: path}, nil
}

// Release best-effort removes the lock file.
func (l *SingleInstanceLock) Release() {
	_ = os.Remove(l.path)
}

func tryCreateLock(path string, payload any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// pidAlive reports whether pid names a currently running process.
func pidAlive(pid int) bool {
	proc, err := ps.FindProcess(pid)
	return err == nil && proc != nil
}

func nowMS() int64 { return time.Now().UnixMilli() }
