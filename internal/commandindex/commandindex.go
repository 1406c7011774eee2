// Package commandindex turns chat text into gated command invocations:
// "!name args" parsing, manager-vs-bot lookup order, tier gating, cooldown
// gating with bypass tier, and affordability-filtered help chunking
// (spec.md §4.3).
package commandindex

import (
	"strings"

	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// HelpChunkMaxLen is the per-reply character budget for !spothelp output
// (spec.md §4.3: "chunks help lines (≤220 chars per chunk)").
const HelpChunkMaxLen = 220

// Index resolves a parsed command name against the manager index first,
// then the bot index, matching spec.md §4.3's declared lookup order.
type Index struct {
	Manager *routerconfig.CommandIndex
	Bots    *routerconfig.CommandIndex
}

// New builds an Index from a loaded router config.
func New(cfg *routerconfig.Config) *Index {
	return &Index{
		Manager: routerconfig.NewCommandIndex(cfg.ManagerCommands),
		Bots:    routerconfig.NewCommandIndex(cfg.Commands),
	}
}

// Invocation is a parsed "!name args" command text.
type Invocation struct {
	Name string
	Args string
}

// Parse splits text into an Invocation iff it starts with "!" (spec.md
// §4.3: "A text is a command iff it starts with !. Split once on
// whitespace: name (lowercased), args (rest, untrimmed)."). ok is false
// for any non-command text.
func Parse(text string) (inv Invocation, ok bool) {
	if !strings.HasPrefix(text, "!") {
		return Invocation{}, false
	}
	body := text[1:]
	name, args, _ := strings.Cut(body, " ")
	return Invocation{Name: strings.ToLower(name), Args: args}, true
}

// Resolve looks up name in the manager index first, then the bot index,
// returning the command definition and whether it is a manager command.
func (idx *Index) Resolve(name string) (cmd *routerconfig.Command, isManager bool, ok bool) {
	if c, found := idx.Manager.Lookup(name); found {
		return c, true, true
	}
	if c, found := idx.Bots.Lookup(name); found {
		return c, false, true
	}
	return nil, false, false
}

// TierAllows reports whether userTier satisfies cmd's minimum tier
// (spec.md §4.3 tier gate: silently rejects user_tier < min_tier).
func TierAllows(cmd *routerconfig.Command, userTier record.Tier) bool {
	return userTier >= record.ParseTier(cmd.MinTier)
}

// CooldownResult is the outcome of the cooldown gate.
type CooldownResult struct {
	Allowed      bool
	RemainingSec int64
}

// CheckCooldown implements spec.md §4.3's cooldown gate: blocked unless
// cooldown_seconds <= 0, the elapsed time has passed, or userTier meets the
// bypass tier. Callers must StampExec on the userstate store when Allowed.
func CheckCooldown(cmd *routerconfig.Command, userTier record.Tier, lastExecTS, now int64) CooldownResult {
	if cmd.CooldownSeconds <= 0 {
		return CooldownResult{Allowed: true}
	}
	// An empty bypass tier means no tier bypasses the cooldown — it must
	// not be confused with the "everyone" tier, which ParseTier returns
	// for any unrecognized string and would otherwise let every tier
	// bypass every cooldown.
	if cmd.CooldownBypassTier != "" && userTier >= record.ParseTier(cmd.CooldownBypassTier) {
		return CooldownResult{Allowed: true}
	}
	elapsed := now - lastExecTS
	remaining := int64(cmd.CooldownSeconds) - elapsed
	if remaining <= 0 {
		return CooldownResult{Allowed: true}
	}
	return CooldownResult{Allowed: false, RemainingSec: remaining}
}

// VisibleHelp filters cmd's help text to commands the user can both see
// (ShowInHelp) and afford (cost_points <= currentPoints), per spec.md
// §4.3's affordability filter, then wraps it into ≤HelpChunkMaxLen-byte
// chunks.
func VisibleHelp(header []string, cmds []*routerconfig.Command, userTier record.Tier, currentPoints int) []string {
	var lines []string
	lines = append(lines, header...)
	for _, c := range cmds {
		if !c.ShowInHelp {
			continue
		}
		if userTier < record.ParseTier(c.MinTier) {
			continue
		}
		if c.CostPoints > currentPoints {
			continue
		}
		lines = append(lines, c.HelpLines...)
	}
	return chunkLines(lines, HelpChunkMaxLen)
}

// chunkLines greedily packs lines into chunks no longer than max bytes,
// joining with "\n"; a single line longer than max becomes its own chunk
// unmodified rather than being split mid-line.
func chunkLines(lines []string, max int) []string {
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, line := range lines {
		if cur.Len() == 0 {
			cur.WriteString(line)
			continue
		}
		if cur.Len()+1+len(line) > max {
			flush()
			cur.WriteString(line)
			continue
		}
		cur.WriteByte('\n')
		cur.WriteString(line)
	}
	flush()
	return chunks
}
