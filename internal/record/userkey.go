package record

import "strings"

// NormalizeUserKey scopes a raw user key by platform (spec.md §3): if raw
// already starts with "<platform>:", it is kept as-is; otherwise the
// platform prefix is prepended. This is idempotent —
// NormalizeUserKey(NormalizeUserKey(k, p), p) == NormalizeUserKey(k, p) —
// which prevents double-prefixing when an upstream feed already namespaces
// its keys.
func NormalizeUserKey(raw, platform string) string {
	prefix := platform + ":"
	if strings.HasPrefix(raw, prefix) {
		return raw
	}
	return prefix + raw
}
