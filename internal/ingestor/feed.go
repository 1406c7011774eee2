package ingestor

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// FingerprintTruncLen and FingerprintWindowMax are spec.md §4.2's named
// constants for the unified-feed watermark (kept tunable per SPEC_FULL.md
// §8, never silently changed).
const (
	FingerprintTruncLen   = 800
	FingerprintWindowMax  = 500
	FingerprintWindowKeep = 200
)

// unifiedFeed is the single-document feed shape (spec.md §4.2).
type unifiedFeed struct {
	UpdatedTS int64        `json:"updatedTs"`
	Messages  []RawMessage `json:"messages"`
}

// FeedOffsets is the ingestor's persisted cursor state (offsets.ingestor.json),
// covering both feed formats at once so switching formats never loses state.
type FeedOffsets struct {
	ChatFeedOffsetBytes int64    `json:"chat_feed_offset_bytes"`
	FeedLastTS          int64    `json:"feed_last_ts"`
	FeedRecentFPs       []string `json:"feed_recent_fps"`
}

// fingerprint produces the sliding-window dedup key for a unified-feed
// message (spec.md §4.2): "<platform>|<user_key>|<ts>|<text>" truncated to
// FingerprintTruncLen bytes.
func fingerprint(platform string, m RawMessage) string {
	userKey := stableUserKey(platform, m.User)
	fp := fmt.Sprintf("%s|%s|%d|%s", platform, userKey, m.TS, m.text())
	if len(fp) > FingerprintTruncLen {
		fp = fp[:FingerprintTruncLen]
	}
	return fp
}

// tryReadUnifiedFeed attempts to parse path as a single unified-feed JSON
// document (spec.md §4.2 format 1). ok is false if the file does not parse
// as the unified shape, signalling the caller to fall back to JSONL.
func tryReadUnifiedFeed(path string) (unifiedFeed, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return unifiedFeed{}, false
	}
	var feed unifiedFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return unifiedFeed{}, false
	}
	if feed.Messages == nil {
		return unifiedFeed{}, false
	}
	return feed, true
}

// ReadUnifiedFeed applies the unified-feed cursor rule (spec.md §4.2): a
// message passes if ts > last_ts, or ts == last_ts and its fingerprint is
// new. Emitted messages are sorted by ts ascending; offsets is mutated with
// the advanced watermark and trimmed fingerprint window.
func ReadUnifiedFeed(path string, offsets *FeedOffsets) ([]RawMessage, bool) {
	feed, ok := tryReadUnifiedFeed(path)
	if !ok {
		return nil, false
	}

	seen := make(map[string]bool, len(offsets.FeedRecentFPs))
	for _, fp := range offsets.FeedRecentFPs {
		seen[fp] = true
	}

	platform := func(m RawMessage) string { return m.platform() }

	var out []RawMessage
	for _, m := range feed.Messages {
		if m.TS <= 0 {
			continue
		}
		fp := fingerprint(platform(m), m)
		if m.TS > offsets.FeedLastTS || (m.TS == offsets.FeedLastTS && !seen[fp]) {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })

	if len(out) > 0 {
		maxTS := offsets.FeedLastTS
		for _, m := range out {
			if m.TS > maxTS {
				maxTS = m.TS
			}
		}
		offsets.FeedLastTS = maxTS

		newest := out
		if len(newest) > FingerprintWindowKeep {
			newest = newest[len(newest)-FingerprintWindowKeep:]
		}
		for _, m := range newest {
			offsets.FeedRecentFPs = append(offsets.FeedRecentFPs, fingerprint(platform(m), m))
		}
		if len(offsets.FeedRecentFPs) > FingerprintWindowMax {
			offsets.FeedRecentFPs = offsets.FeedRecentFPs[len(offsets.FeedRecentFPs)-FingerprintWindowMax:]
		}
	}

	return out, true
}

// SeedUnifiedFeedWatermark computes the initial feed_last_ts for
// process_existing_on_start=false: the max ts already present, so the
// backlog is skipped (spec.md §4.2 startup rule).
func SeedUnifiedFeedWatermark(path string) int64 {
	feed, ok := tryReadUnifiedFeed(path)
	if !ok {
		return 0
	}
	var maxTS int64
	for _, m := range feed.Messages {
		if m.TS > maxTS {
			maxTS = m.TS
		}
	}
	return maxTS
}
