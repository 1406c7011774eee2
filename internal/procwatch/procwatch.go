// Package procwatch wraps fsnotify to wake a poller early when a bus
// directory changes, shortening idle waits without changing cursor
// semantics (SPEC_FULL.md §5.3: "never changes cursor semantics, only
// wakeup timing, per spec §9's explicit allowance").
package procwatch

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher signals on Events whenever a write-like event occurs anywhere
// under the watched directory. Callers still poll on their own cadence —
// this only shortens the wait, it is never the sole wakeup source, since
// fsnotify can coalesce or drop events under load.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	Events  <-chan struct{}

	done chan struct{}
}

// Watch starts watching dir (non-recursively; bus directories are flat).
// Close must be called to release the underlying OS watch.
func Watch(dir string) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("procwatch: new watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("procwatch: watch %s: %w", dir, err)
	}

	events := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case events <- struct{}{}:
				default:
					// A wakeup is already pending; coalesce.
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return &DirWatcher{watcher: w, Events: events, done: done}, nil
}

// Close stops the watcher and its goroutine.
func (d *DirWatcher) Close() error {
	close(d.done)
	return d.watcher.Close()
}
