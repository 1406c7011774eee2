package busfile

import (
	"fmt"
	"os"
)

// Cursor tracks one reader's byte offset into one bus file plus whether
// that offset has changed since it was last persisted (spec.md §4.1: "write
// the cursor immediately after each inbox poll that advanced it").
type Cursor struct {
	Path   string
	Offset int64
	dirty  bool
}

// NewCursor wraps path with an initial offset (0 unless restored from an
// offsets file).
func NewCursor(path string, offset int64) *Cursor {
	return &Cursor{Path: path, Offset: offset}
}

// Poll reads every new record since the cursor's offset, decodes them with
// decode, and advances+dirties the cursor on success.
func Poll[T any](c *Cursor, decode func([]byte) (T, bool)) ([]T, error) {
	recs, newOffset, err := ReadSince(c.Path, c.Offset, decode)
	if err != nil {
		return nil, fmt.Errorf("cursor poll %s: %w", c.Path, err)
	}
	if newOffset != c.Offset {
		c.Offset = newOffset
		c.dirty = true
	}
	return recs, nil
}

// Dirty reports whether the offset has advanced since the last Clean call.
func (c *Cursor) Dirty() bool { return c.dirty }

// Clean marks the cursor as persisted.
func (c *Cursor) Clean() { c.dirty = false }

// SeedToEnd seeds the cursor to the current size of its file, so history is
// skipped rather than replayed (spec.md §4.2, §4.6).
func SeedToEnd(path string) (int64, error) {
	size, err := fileSize(path)
	if err != nil {
		return 0, err
	}
	return size, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("busfile: stat %s: %w", path, err)
	}
	return info.Size(), nil
}
