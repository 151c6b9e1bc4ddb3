package journey

import (
	"strings"
	"unicode/utf8"
)

const (
	titleRunes     = 50
	summaryRunes   = 50
	highlightRunes = 120
	excerptRunes   = 80
)

// truncate shortens s to at most max runes, never splitting a multibyte character.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	if max == 1 {
		return string(runes[:1])
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
