// Package gambleworker implements the gamble bot's task handler: a minimal
// reel-spin symbol generator standing in for the external slot-symbol
// classifier spec.md treats as an out-of-scope collaborator (SPEC_FULL.md
// §5.5). The router, not this package, resolves the spin into a payout —
// this package only draws symbols and picks an animation length.
package gambleworker

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/slotsconfig"
	"github.com/kallsen-dev/chatforge/internal/worker"
)

// ReelCount is the number of positions spun per round (spec.md §6's
// 3-wide payout patterns assume this).
const ReelCount = 3

// spinBlockingBaseMS and spinBlockingJitterMS bound the simulated spin
// animation length reported as blocking_ms, which drives the router's
// busy_until_ts back-pressure window (spec.md §4.4 step 6).
const (
	spinBlockingBaseMS   = 1800
	spinBlockingJitterMS = 1400
)

// Spinner draws reel symbols for !roll-style tasks.
type Spinner struct {
	rng *rand.Rand
}

// NewSpinner builds a Spinner seeded from seed (callers should pass a
// value derived from process start time so repeated worker restarts don't
// replay identical spins).
func NewSpinner(seed int64) *Spinner {
	return &Spinner{rng: rand.New(rand.NewSource(seed))}
}

// Handle implements worker.Handler for the gamble bot's "slots" action: it
// decodes the task's slots-config snapshot, draws ReelCount symbols from
// its reel set, and replies with the bet's fate left for the router to
// resolve against its own (possibly hot-reloaded) payout rules.
func (s *Spinner) Handle(task record.Task) (worker.Result, error) {
	cfg, err := decodeSlotsConfig(task.SlotsConfig)
	if err != nil {
		return worker.Result{}, fmt.Errorf("gambleworker: decode slots_config: %w", err)
	}
	if len(cfg.Reels) == 0 {
		return worker.Result{}, fmt.Errorf("gambleworker: empty reel set in task %s", task.TaskID)
	}

	symbols := make([]string, ReelCount)
	for i := range symbols {
		symbols[i] = cfg.Reels[s.rng.Intn(len(cfg.Reels))]
	}
	blockingMS := spinBlockingBaseMS + s.rng.Intn(spinBlockingJitterMS)

	return worker.Result{
		Messages:   []string{spinLine(symbols)},
		BlockingMS: blockingMS,
		Game:       map[string]any{"symbols": toAnySlice(symbols)},
	}, nil
}

func spinLine(symbols []string) string {
	line := ""
	for i, s := range symbols {
		if i > 0 {
			line += " "
		}
		line += s
	}
	return "[ " + line + " ]"
}

func toAnySlice(symbols []string) []any {
	out := make([]any, len(symbols))
	for i, s := range symbols {
		out[i] = s
	}
	return out
}

func decodeSlotsConfig(snapshot map[string]any) (*slotsconfig.Config, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	var cfg slotsconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
