package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and caps it at maxLen characters. The cut never
// splits a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	end, seen := 0, 0
	for seen < maxLen {
		_, size := utf8.DecodeRuneInString(trimmed[end:])
		end += size
		seen++
	}
	return trimmed[:end]
}
