package supervisor

import (
	"os"
	"time"
)

// newestMtime returns the most recent modification time among paths that
// exist; missing files (e.g. a bot inbox never yet written to) are
// skipped rather than treated as infinitely stale.
func newestMtime(paths []string) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(newest) {
			newest = info.ModTime()
			found = true
		}
	}
	return newest, found
}

// isStale reports whether the newest of witness has not been touched for
// longer than threshold (spec.md §4.7: "tracks newest mtime over a set of
// witness files per component"). A component with no existing witness
// files yet (e.g. it hasn't produced output since supervisor start) is
// never considered stale — there's nothing yet to go stale.
func isStale(witness []string, now time.Time, threshold time.Duration) bool {
	newest, ok := newestMtime(witness)
	if !ok {
		return false
	}
	return now.Sub(newest) > threshold
}

// hasBacklog reports whether inbox has been written to more recently
// than ack by more than threshold — a worker that is falling behind
// (spec.md §4.7: "A worker is also restarted if its inbox is newer than
// its ack ... by more than the threshold").
func hasBacklog(inboxPath, ackPath string, threshold time.Duration) bool {
	inboxInfo, err := os.Stat(inboxPath)
	if err != nil {
		return false
	}
	ackInfo, err := os.Stat(ackPath)
	if err != nil {
		// Inbox exists but no ack has ever been written; only a backlog
		// once the inbox itself is older than threshold relative to now
		// is handled by the caller's plain staleness check.
		return false
	}
	return inboxInfo.ModTime().Sub(ackInfo.ModTime()) > threshold
}
