// Package worker implements the generic per-bot worker shape (spec.md
// §4.6): poll one inbox, run a handler, emit a reply plus an ack, always
// acking even on handler error so the router's inflight entry never hangs
// on a crash.
package worker

import (
	"fmt"
	"time"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/record"
)

// IdlePollInterval and ActivePollInterval are the two polling cadences a
// worker's run loop alternates between (spec.md §4.6, §4.7: "tight loop
// when active work is happening; slightly slower when idle").
const (
	IdlePollInterval   = 80 * time.Millisecond
	ActivePollInterval = 10 * time.Millisecond
)

// ErrorResultCode is the result_code a worker's reply carries when its
// handler returns an error (spec.md §7 "Worker exception during task").
const ErrorResultCode = "ERROR"

// Result is what a task Handler produces on success.
type Result struct {
	Messages      []string
	OverlayEvents []record.OverlayBlob
	BlockingMS    int
	Game          map[string]any
}

// Handler runs one dispatched task and returns its reply content. A
// returned error is treated as a task-level failure: the worker still
// replies (with a generic message) and acks with status "error" rather
// than letting the task vanish silently.
type Handler func(task record.Task) (Result, error)

type offsets struct {
	InboxOffsetBytes int64 `json:"inbox_offset_bytes"`
}

// Worker polls one bot's inbox and writes to its own outbox/ack, per
// spec.md §4.6.
type Worker struct {
	outboxPath  string
	ackPath     string
	offsetsPath string

	cursor  *busfile.Cursor
	handler Handler
}

// Open loads persisted offsets (or seeds to end-of-file on first run, so a
// freshly started worker never replays history it wasn't meant to see) and
// constructs a Worker.
func Open(inboxPath, outboxPath, ackPath, offsetsPath string, handler Handler) (*Worker, error) {
	var persisted offsets
	if err := busfile.LoadJSON(offsetsPath, &persisted); err != nil {
		return nil, fmt.Errorf("worker: load offsets %s: %w", offsetsPath, err)
	}
	if persisted.InboxOffsetBytes == 0 {
		size, err := busfile.SeedToEnd(inboxPath)
		if err != nil {
			return nil, fmt.Errorf("worker: seed inbox offset: %w", err)
		}
		persisted.InboxOffsetBytes = size
		if err := busfile.AtomicWriteJSON(offsetsPath, persisted); err != nil {
			return nil, fmt.Errorf("worker: persist seeded offsets: %w", err)
		}
	}

	return &Worker{
		outboxPath:  outboxPath,
		ackPath:     ackPath,
		offsetsPath: offsetsPath,
		cursor:      busfile.NewCursor(inboxPath, persisted.InboxOffsetBytes),
		handler:     handler,
	}, nil
}

// Tick polls the inbox once, runs the handler over every new task, and
// persists the advanced offset. It reports whether any task was processed,
// so the caller's run loop can pick IdlePollInterval vs ActivePollInterval.
func (w *Worker) Tick(now int64) (progressed bool, err error) {
	tasks, err := busfile.Poll(w.cursor, record.DecodeTask)
	if err != nil {
		return false, fmt.Errorf("worker: poll inbox: %w", err)
	}

	for _, task := range tasks {
		if task.Type != "task" || task.TaskID == "" {
			continue
		}
		progressed = true
		w.runTask(task, now)
	}

	if w.cursor.Dirty() {
		if err := busfile.AtomicWriteJSON(w.offsetsPath, offsets{InboxOffsetBytes: w.cursor.Offset}); err != nil {
			return progressed, fmt.Errorf("worker: persist offsets: %w", err)
		}
		w.cursor.Clean()
	}
	return progressed, nil
}

func (w *Worker) runTask(task record.Task, now int64) {
	result, err := safeHandle(w.handler, task)
	if err != nil {
		_ = busfile.Append(w.outboxPath, record.WorkerReply{
			Type: "reply", TaskID: task.TaskID, TS: now,
			Messages: []string{"Something went wrong running that command. Please try again."},
			Game:     map[string]any{"result_code": ErrorResultCode},
		})
		_ = busfile.Append(w.ackPath, record.WorkerAck{Type: "ack", TaskID: task.TaskID, TS: now, Status: "error", Error: err.Error()})
		return
	}

	_ = busfile.Append(w.outboxPath, record.WorkerReply{
		Type: "reply", TaskID: task.TaskID, TS: now,
		Messages: result.Messages, OverlayEvents: result.OverlayEvents, BlockingMS: result.BlockingMS, Game: result.Game,
	})
	_ = busfile.Append(w.ackPath, record.WorkerAck{Type: "ack", TaskID: task.TaskID, TS: now, Status: "ok"})
}

// safeHandle recovers from a handler panic and turns it into an error, so
// one bad task can never take the whole worker process down (spec.md §7).
func safeHandle(h Handler, task record.Task) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: handler panic: %v", r)
		}
	}()
	return h(task)
}
