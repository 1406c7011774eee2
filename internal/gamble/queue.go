// Package gamble implements the globally-serialized gamble FIFO (spec.md
// §4.4): enqueue, the at-most-one-active dispatch predicate, and payout
// resolution on worker completion.
package gamble

import (
	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/record"
)

// State is the gamble_queue.json document (spec.md §3 GambleQueue).
type State struct {
	Queue       []record.Task  `json:"queue"`
	Active      *record.Task   `json:"active"`
	BusyUntilTS int64          `json:"busy_until_ts"`
}

// Queue owns gamble_queue.json and the in-memory copy of its contents.
type Queue struct {
	path  string
	state State
}

// Open loads path into a Queue, defaulting to an empty queue if the file
// does not yet exist.
func Open(path string) (*Queue, error) {
	q := &Queue{path: path, state: State{Queue: []record.Task{}}}
	if err := busfile.LoadJSON(path, &q.state); err != nil {
		return nil, err
	}
	return q, nil
}

// Save publishes the queue state atomically.
func (q *Queue) Save() error {
	return busfile.AtomicWriteJSON(q.path, &q.state)
}

// ReservedForUser sums the bets of userKey's queued tasks plus their active
// task if any (spec.md §3 invariant).
func (q *Queue) ReservedForUser(userKey string) int {
	total := 0
	for _, t := range q.state.Queue {
		if t.UserKey == userKey {
			total += t.Bet
		}
	}
	if q.state.Active != nil && q.state.Active.UserKey == userKey {
		total += q.state.Active.Bet
	}
	return total
}

// Enqueue appends task to the queue and returns its 1-based queue position.
func (q *Queue) Enqueue(task record.Task) int {
	q.state.Queue = append(q.state.Queue, task)
	return len(q.state.Queue)
}

// CanDispatch reports whether the dispatch predicate holds at now
// (spec.md §4.4: active == null AND now >= busy_until_ts AND queue not
// empty).
func (q *Queue) CanDispatch(now int64) bool {
	if q.state.Active != nil {
		return false
	}
	if now < q.state.BusyUntilTS {
		return false
	}
	return len(q.state.Queue) > 0
}

// PopForDispatch pops the head of the queue into Active. Callers must have
// checked CanDispatch first.
func (q *Queue) PopForDispatch() record.Task {
	next := q.state.Queue[0]
	q.state.Queue = q.state.Queue[1:]
	q.state.Active = &next
	return next
}

// Active returns the current active task, if any.
func (q *Queue) Active() *record.Task {
	return q.state.Active
}

// IsActive reports whether taskID is the currently active task.
func (q *Queue) IsActive(taskID string) bool {
	return q.state.Active != nil && q.state.Active.TaskID == taskID
}

// MarkDone clears the active slot and sets the busy-until window
// (spec.md §4.4 step 6): busy_until_ts = now + ceil(blockingMS/1000).
func (q *Queue) MarkDone(now int64, blockingMS int) {
	q.state.Active = nil
	q.state.BusyUntilTS = now + ceilMSToSeconds(blockingMS)
}

func ceilMSToSeconds(ms int) int64 {
	if ms <= 0 {
		return 0
	}
	return int64((ms + 999) / 1000)
}

// Snapshot returns a shallow copy of the queue contents, useful for status
// reporting (chatforgectl status).
func (q *Queue) Snapshot() State {
	return q.state
}
