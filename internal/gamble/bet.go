package gamble

import (
	"strconv"
	"strings"
)

// DefaultBet is the implicit wager when a !slots command carries no
// argument (spec.md §4.4 step 2).
const DefaultBet = 50

// ParseBet interprets the raw argument string of a gamble command against
// spendable (points minus reserved, spec.md §3/§4.4):
//   - empty  -> min(DefaultBet, spendable)
//   - "max" | "all" (case-insensitive) -> spendable
//   - an integer -> clamped to >= 0
//   - anything else -> 0, which the caller rejects via the "bet <= 0" path
//     (spec.md §8 Open Questions decision in SPEC_FULL.md)
func ParseBet(arg string, spendable int) int {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "":
		if spendable < DefaultBet {
			return spendable
		}
		return DefaultBet
	case "max", "all":
		return spendable
	}

	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
