package router

import "github.com/google/uuid"

// newTaskID mints a task_id with the prefix convention from spec.md §3:
// "t_" + 12 hex for generic bot tasks, "g_" + 10 hex for gamble tasks.
func newTaskID(prefix string, hexLen int) string {
	hex := uuid.New().String()
	hex = stripHyphens(hex)
	if len(hex) > hexLen {
		hex = hex[:hexLen]
	}
	return prefix + hex
}

func stripHyphens(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
