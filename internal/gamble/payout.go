package gamble

import "github.com/kallsen-dev/chatforge/internal/slotsconfig"

// ResolveMultiplier implements spec.md §4.4 step 2's outcome resolution:
//   - if the worker supplied an explicit multiplier, that wins outright;
//   - else match (symbols, resultCode) against the payout rules in
//     declared order, "*" acting as a positional wildcard, first match
//     wins;
//   - if symbols are absent but resultCode matches a rule's ResultCode,
//     use that rule's multiplier;
//   - otherwise fall back to cfg.DefaultLossMult.
func ResolveMultiplier(explicitMult *int, symbols []string, resultCode string, cfg *slotsconfig.Config) int {
	if explicitMult != nil {
		return *explicitMult
	}

	if len(symbols) > 0 {
		for _, p := range cfg.Payouts {
			if patternMatches(p.Pattern, symbols) {
				return p.Mult
			}
		}
	}

	if resultCode != "" {
		for _, p := range cfg.Payouts {
			if p.ResultCode == resultCode {
				return p.Mult
			}
		}
	}

	return cfg.DefaultLossMult
}

// patternMatches compares pattern against symbols position by position,
// "*" matching any symbol. Lengths must match exactly.
func patternMatches(pattern, symbols []string) bool {
	if len(pattern) != len(symbols) {
		return false
	}
	for i, want := range pattern {
		if want == "*" {
			continue
		}
		if want != symbols[i] {
			return false
		}
	}
	return true
}

// ResolvePayout computes the final payout and net per spec.md §4.4 step 3:
// payout = explicitPayout if supplied, else bet*mult, clamped to >= 0;
// net = payout - bet.
func ResolvePayout(explicitPayout *int, bet, mult int) (payout, net int) {
	if explicitPayout != nil {
		payout = *explicitPayout
	} else {
		payout = bet * mult
	}
	if payout < 0 {
		payout = 0
	}
	net = payout - bet
	return payout, net
}
