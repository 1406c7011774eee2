// Package slotsconfig loads and hot-reloads the slots payout configuration
// (spec.md §6): reels, ordered payout rules with "*" wildcards, and the
// default fall-through multiplier.
package slotsconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Payout is one payout rule, matched against (symbols, result_code) in
// declared order with "*" as a wildcard in Pattern (spec.md §4.4 step 2).
type Payout struct {
	Name       string   `json:"name"`
	Pattern    []string `json:"pattern"`
	Mult       int      `json:"mult"`
	ResultCode string   `json:"result_code"`
}

// Config is the slots.json document (spec.md §6).
type Config struct {
	Reels          []string `json:"reels"`
	Payouts        []Payout `json:"payouts"`
	DefaultLossMult int     `json:"default_loss_mult"`
}

// defaultConfig's Pattern entries are always 3 wide, one slot per reel,
// matched positionally against the spun symbols; "*" matches any symbol in
// that position (spec.md §6: `pattern:[string,*,*]`).
var defaultConfig = Config{
	Reels: []string{"🍒", "🍋", "🔔", "⭐", "7️⃣"},
	Payouts: []Payout{
		{Name: "jackpot", Pattern: []string{"7️⃣", "7️⃣", "7️⃣"}, Mult: 25, ResultCode: "SLOTS_777"},
		{Name: "triple_bell", Pattern: []string{"🔔", "🔔", "🔔"}, Mult: 10, ResultCode: "SLOTS_BELLS"},
		{Name: "triple_star", Pattern: []string{"⭐", "⭐", "⭐"}, Mult: 8, ResultCode: "SLOTS_STARS"},
		{Name: "cherry_lead", Pattern: []string{"🍒", "*", "*"}, Mult: 1, ResultCode: "SLOTS_CHERRY"},
		{Name: "any_triple", Pattern: []string{"*", "*", "*"}, Mult: 4, ResultCode: "SLOTS_TRIPLE"},
	},
	DefaultLossMult: 0,
}

// Load reads path, auto-creating it from defaultConfig if missing
// (spec.md §7: "Slots config file missing → auto-create from defaults").
func Load(path string) (*Config, time.Time, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if werr := writeDefault(path); werr != nil {
			return nil, time.Time{}, fmt.Errorf("slotsconfig: create default %s: %w", path, werr)
		}
		info, err = os.Stat(path)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("slotsconfig: stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("slotsconfig: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, time.Time{}, fmt.Errorf("slotsconfig: parse %s: %w", path, err)
	}
	return &cfg, info.ModTime(), nil
}

func writeDefault(path string) error {
	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Reloader hot-reloads a slots config by mtime (spec.md §4.4 step 1, §6).
type Reloader struct {
	path    string
	cfg     *Config
	modTime time.Time
}

// NewReloader loads path once and returns a Reloader tracking it.
func NewReloader(path string) (*Reloader, error) {
	cfg, mod, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Reloader{path: path, cfg: cfg, modTime: mod}, nil
}

// Current returns the reloader's config, reloading first if the file's
// mtime has changed since the last load.
func (r *Reloader) Current() (*Config, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r.cfg, nil
		}
		return nil, fmt.Errorf("slotsconfig: stat %s: %w", r.path, err)
	}
	if !info.ModTime().After(r.modTime) {
		return r.cfg, nil
	}
	cfg, mod, err := Load(r.path)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	r.modTime = mod
	return r.cfg, nil
}
