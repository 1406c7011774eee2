// Package userstate owns the router's points ledger: per-user balances,
// cooldown timestamps, the periodic active-session earning tick, and the
// append-only audit ledger (spec.md §3 UserRecord, PointsLedger; §4.3
// Earning).
package userstate

import (
	"github.com/kallsen-dev/chatforge/internal/busfile"
)

// Record is router-owned per-user state (spec.md §3 UserRecord). Points
// never go negative; every Store mutator clamps the balance at 0.
type Record struct {
	Points      int              `json:"points"`
	LastSeenTS  int64            `json:"last_seen_ts"`
	LastAwardTS int64            `json:"last_award_ts"`
	Cooldowns   map[string]int64 `json:"cooldowns"`
}

// LedgerEntry is one line of points_ledger.jsonl (spec.md §3 PointsLedger).
type LedgerEntry struct {
	Type     string `json:"type"`
	TS       int64  `json:"ts"`
	Platform string `json:"platform"`
	UserKey  string `json:"user_key"`
	Command  string `json:"command"`
	Bot      string `json:"bot"`
	Delta    int    `json:"delta"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Note     string `json:"note,omitempty"`
}

// Earning holds the per-tick award rates (spec.md §6 earning block).
type Earning struct {
	ActiveWindowSeconds int
	PointsPerMinute     int
	PointsPerMessage    int
	PointsPerLike       int
	PointsPerShare      int
}

// Store owns user_state.json and points_ledger.jsonl, plus an optional
// mirror path for overlay consumers (spec.md §4.3 flush discipline).
type Store struct {
	path       string
	ledgerPath string
	mirrorPath string

	users map[string]*Record
	dirty bool
}

// Open loads path (and prepares ledgerPath for appends), defaulting to an
// empty user map if the file does not yet exist.
func Open(path, ledgerPath, mirrorPath string) (*Store, error) {
	s := &Store{path: path, ledgerPath: ledgerPath, mirrorPath: mirrorPath, users: map[string]*Record{}}
	if err := busfile.LoadJSON(path, &s.users); err != nil {
		return nil, err
	}
	if s.users == nil {
		s.users = map[string]*Record{}
	}
	return s, nil
}

// Dirty reports whether any mutation is pending flush.
func (s *Store) Dirty() bool { return s.dirty }

// Flush atomically persists user_state.json (and its overlay mirror, if
// configured) when dirty, clearing the dirty flag on success.
func (s *Store) Flush() error {
	if !s.dirty {
		return nil
	}
	if err := busfile.AtomicWriteJSON(s.path, s.users); err != nil {
		return err
	}
	if s.mirrorPath != "" {
		if err := busfile.AtomicWriteJSON(s.mirrorPath, s.users); err != nil {
			return err
		}
	}
	s.dirty = false
	return nil
}

// getOrCreate returns userKey's record, creating a zero-value one on first
// touch.
func (s *Store) getOrCreate(userKey string) *Record {
	r, ok := s.users[userKey]
	if !ok {
		r = &Record{Cooldowns: map[string]int64{}}
		s.users[userKey] = r
	}
	if r.Cooldowns == nil {
		r.Cooldowns = map[string]int64{}
	}
	return r
}

// Points returns userKey's current balance (0 if never seen).
func (s *Store) Points(userKey string) int {
	r, ok := s.users[userKey]
	if !ok {
		return 0
	}
	return r.Points
}

// Touch records that userKey was active at ts and appends one ledger entry
// per event-driven award (spec.md §4.3: chat/like/share flat awards).
func (s *Store) Touch(userKey, platform string, ts int64, delta int, command, note string) error {
	r := s.getOrCreate(userKey)
	r.LastSeenTS = ts
	if r.LastAwardTS == 0 {
		r.LastAwardTS = ts
	}
	if delta == 0 {
		s.dirty = true
		return nil
	}
	before := r.Points
	r.Points = clamp(r.Points + delta)
	s.dirty = true
	return s.appendLedger(LedgerEntry{
		Type: "ledger", TS: ts, Platform: platform, UserKey: userKey,
		Command: command, Delta: delta, Before: before, After: r.Points, Note: note,
	})
}

// Spend deducts cost from userKey's balance if affordable, appending a
// ledger entry. Reports false (no mutation) if funds are insufficient.
func (s *Store) Spend(userKey, platform string, ts int64, cost int, command, bot, note string) (bool, error) {
	r := s.getOrCreate(userKey)
	if r.Points < cost {
		return false, nil
	}
	before := r.Points
	r.Points = clamp(r.Points - cost)
	s.dirty = true
	if err := s.appendLedger(LedgerEntry{
		Type: "ledger", TS: ts, Platform: platform, UserKey: userKey,
		Command: command, Bot: bot, Delta: -cost, Before: before, After: r.Points, Note: note,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyNet applies a net delta (positive or negative, e.g. a gamble payout)
// to userKey's balance, clamping at 0, and appends a ledger entry.
func (s *Store) ApplyNet(userKey, platform string, ts int64, net int, command, bot, note string) error {
	r := s.getOrCreate(userKey)
	before := r.Points
	r.Points = clamp(r.Points + net)
	s.dirty = true
	return s.appendLedger(LedgerEntry{
		Type: "ledger", TS: ts, Platform: platform, UserKey: userKey,
		Command: command, Bot: bot, Delta: net, Before: before, After: r.Points, Note: note,
	})
}

// LastExec returns command's last-execution timestamp for userKey (0 if
// never executed).
func (s *Store) LastExec(userKey, command string) int64 {
	r, ok := s.users[userKey]
	if !ok {
		return 0
	}
	return r.Cooldowns[command]
}

// StampExec records command as having just executed for userKey at ts.
func (s *Store) StampExec(userKey, command string, ts int64) {
	r := s.getOrCreate(userKey)
	r.Cooldowns[command] = ts
	s.dirty = true
}

// EarningTick scans every known user and awards active-session points for
// whole minutes elapsed since their last award, advancing last_award_ts by
// exactly minutes*60 (not to now) to avoid drift (spec.md §4.3 Earning).
// Returns the number of users awarded.
func (s *Store) EarningTick(now int64, e Earning, platform string) (int, error) {
	awarded := 0
	for userKey, r := range s.users {
		if r.LastSeenTS == 0 || now-r.LastSeenTS > int64(e.ActiveWindowSeconds) {
			continue
		}
		if r.LastAwardTS == 0 {
			r.LastAwardTS = now
			s.dirty = true
			continue
		}
		elapsed := now - r.LastAwardTS
		minutes := elapsed / 60
		if minutes <= 0 {
			continue
		}
		delta := int(minutes) * e.PointsPerMinute
		r.LastAwardTS += minutes * 60
		s.dirty = true
		if delta == 0 {
			continue
		}
		before := r.Points
		r.Points = clamp(r.Points + delta)
		awarded++
		if err := s.appendLedger(LedgerEntry{
			Type: "ledger", TS: now, Platform: platform, UserKey: userKey,
			Command: "_earning", Delta: delta, Before: before, After: r.Points, Note: "active-session earning",
		}); err != nil {
			return awarded, err
		}
	}
	return awarded, nil
}

func (s *Store) appendLedger(e LedgerEntry) error {
	if s.ledgerPath == "" {
		return nil
	}
	return busfile.Append(s.ledgerPath, e)
}

func clamp(points int) int {
	if points < 0 {
		return 0
	}
	return points
}
