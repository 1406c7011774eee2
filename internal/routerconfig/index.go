package routerconfig

import "strings"

// CommandIndex resolves a command name or alias (always looked up
// lowercased) to its definition, preserving insertion order for help output.
type CommandIndex struct {
	byName map[string]*Command
	order  []*Command
}

// NewCommandIndex builds an index from a config command list, populating
// alias entries so a lookup by alias returns the same *Command as its
// canonical name (spec.md §3).
func NewCommandIndex(cmds []Command) *CommandIndex {
	idx := &CommandIndex{byName: make(map[string]*Command)}
	for i := range cmds {
		c := &cmds[i]
		name := strings.ToLower(c.Command)
		idx.byName[name] = c
		idx.order = append(idx.order, c)
		for _, alias := range c.Aliases {
			idx.byName[strings.ToLower(alias)] = c
		}
	}
	return idx
}

// Lookup returns the command definition for name (already-lowercased
// callers are fine; Lookup lowercases defensively).
func (idx *CommandIndex) Lookup(name string) (*Command, bool) {
	c, ok := idx.byName[strings.ToLower(name)]
	return c, ok
}

// All returns every distinct command definition in declaration order (not
// one entry per alias).
func (idx *CommandIndex) All() []*Command {
	return idx.order
}
