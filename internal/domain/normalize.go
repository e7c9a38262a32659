package domain

import (
	"regexp"
	"strings"
)

var (
	// numeroFragment extracts the case number from payloads where the
	// scraper accidentally submitted a serialized JSON array fragment
	// instead of the bare number.
	numeroFragment = regexp.MustCompile(`"numero":"([^"]+)"`)

	lineBreaks = regexp.MustCompile(`[\r\n]+`)
)

// NormalizeCaseNumber cleans a raw case number. If the value looks like a
// serialized object fragment (starts with "[{") the number bound to the
// "numero" key is extracted; otherwise the input is trimmed. Extraction
// failure falls back to the trimmed input rather than erroring.
func NormalizeCaseNumber(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[{") {
		if m := numeroFragment.FindStringSubmatch(trimmed); m != nil {
			return m[1]
		}
	}
	return trimmed
}

// NormalizeText collapses line-break runs into single spaces, trims the
// result and doubles any backslash not already starting a recognized
// escape sequence, so stray backslashes from copy-pasted legal text stay
// JSON-safe downstream.
func NormalizeText(raw string) string {
	normalized := strings.TrimSpace(lineBreaks.ReplaceAllString(raw, " "))
	return escapeStrayBackslashes(normalized)
}

// escapeStrayBackslashes doubles every backslash that is not followed by
// one of \ / " b f n r t. Written by hand: RE2 has no negative lookahead.
func escapeStrayBackslashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && isEscapeChar(s[i+1]) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func isEscapeChar(c byte) bool {
	switch c {
	case '\\', '/', '"', 'b', 'f', 'n', 'r', 't':
		return true
	}
	return false
}
