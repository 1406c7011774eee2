package emitter

import "strings"

// botPrefix picks the reply-text prefix for a given bot id, mirroring the
// per-bot bracket convention (spec.md §4.5): spotify gets the configurable
// prefix, gamble and manager get fixed brackets, anything else gets a
// generic "[XBot]" derived from its id.
func botPrefix(bot, spotifyPrefix string) string {
	b := strings.ToLower(bot)
	switch {
	case b == "spotify":
		return spotifyPrefix
	case b == "gamble":
		return "[Slots]"
	case b == "manager":
		return "[Manager]"
	case b != "":
		return "[" + strings.ToUpper(b[:1]) + b[1:] + "Bot]"
	default:
		return ""
	}
}

// clamp truncates s to at most n runes, replacing the final rune with an
// ellipsis when it would otherwise overflow (spec.md §4.5).
func clamp(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n <= 0 {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatReply builds the final outbound message text: "@name text",
// optionally bot-prefixed, clamped to maxLen (spec.md §4.5).
func formatReply(replyName, text, bot, spotifyPrefix string, maxLen int) string {
	msg := strings.TrimSpace("@" + replyName + " " + text)
	if prefix := botPrefix(bot, spotifyPrefix); prefix != "" {
		msg = prefix + " " + msg
	}
	return clamp(msg, maxLen)
}

// isOverlayOnly reports whether platform matches one of the configured
// overlay-only prefixes (spec.md §4.5, §6 reply_policy).
func isOverlayOnly(platform string, prefixes []string) bool {
	p := strings.ToLower(platform)
	for _, pref := range prefixes {
		if strings.HasPrefix(p, strings.ToLower(pref)) {
			return true
		}
	}
	return false
}
