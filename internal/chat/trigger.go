package chat

import "strings"

// ShouldTrigger reports whether text summons the assistant: it either opens
// with "@ai" or mentions "hey ai" anywhere, ignoring case.
func ShouldTrigger(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(strings.TrimSpace(lower), "@ai") || strings.Contains(lower, "hey ai")
}
