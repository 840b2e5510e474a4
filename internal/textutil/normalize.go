package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxIdentifierLength bounds accepted profile identifiers.
const MaxIdentifierLength = 256

// NormalizeIdentifier trims surrounding whitespace and a single leading "@"
// from a profile identifier. Returns the cleaned value unchanged otherwise;
// platforms decide case sensitivity themselves.
func NormalizeIdentifier(identifier string) string {
	trimmed := strings.TrimSpace(identifier)
	trimmed = strings.TrimPrefix(trimmed, "@")
	return strings.TrimSpace(trimmed)
}

// ValidIdentifier reports whether a normalized identifier is acceptable:
// non-empty, within length bounds, and free of internal whitespace.
func ValidIdentifier(identifier string) bool {
	if identifier == "" || len(identifier) > MaxIdentifierLength {
		return false
	}
	for _, r := range identifier {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Truncate shortens text to at most limit runes, appending an ellipsis when
// content was dropped. Limits below 4 return the bare prefix.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit < 4 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}
