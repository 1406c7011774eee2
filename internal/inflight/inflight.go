// Package inflight tracks router-dispatched tasks awaiting a worker reply
// (spec.md §3 InflightEntry): created on dispatch, destroyed on matching
// reply receipt or orphan-reply classification.
package inflight

import "github.com/kallsen-dev/chatforge/internal/busfile"

// Entry is one outstanding dispatch.
type Entry struct {
	Bot       string `json:"bot"`
	Platform  string `json:"platform"`
	ReplyName string `json:"reply_name"`
	UserKey   string `json:"user_key"`
	Command   string `json:"command"`
	TS        int64  `json:"ts"`
}

// Table owns inflight.json.
type Table struct {
	path    string
	entries map[string]Entry
	dirty   bool
}

// Open loads path, defaulting to an empty table if it does not yet exist.
func Open(path string) (*Table, error) {
	t := &Table{path: path, entries: map[string]Entry{}}
	if err := busfile.LoadJSON(path, &t.entries); err != nil {
		return nil, err
	}
	if t.entries == nil {
		t.entries = map[string]Entry{}
	}
	return t, nil
}

// Dirty reports whether any mutation is pending flush.
func (t *Table) Dirty() bool { return t.dirty }

// Flush atomically persists inflight.json when dirty.
func (t *Table) Flush() error {
	if !t.dirty {
		return nil
	}
	if err := busfile.AtomicWriteJSON(t.path, t.entries); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Register creates an inflight entry for taskID on dispatch.
func (t *Table) Register(taskID string, e Entry) {
	t.entries[taskID] = e
	t.dirty = true
}

// Lookup returns taskID's entry, if still outstanding.
func (t *Table) Lookup(taskID string) (Entry, bool) {
	e, ok := t.entries[taskID]
	return e, ok
}

// Resolve removes taskID's entry (matching reply received, or orphan
// classification decided by the caller).
func (t *Table) Resolve(taskID string) {
	if _, ok := t.entries[taskID]; !ok {
		return
	}
	delete(t.entries, taskID)
	t.dirty = true
}

// Len returns the number of outstanding entries (status reporting).
func (t *Table) Len() int { return len(t.entries) }
