package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString collapses runs of whitespace and truncates to maxLen runes.
// Truncation never splits a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxLen]))
}
