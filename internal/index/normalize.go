package index

import (
	"regexp"
	"strings"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeMessage produces the lookup key for an error message: case-folded,
// trimmed, internal whitespace collapsed to single spaces. Index build and
// query time must use the same function or exact lookups silently miss.
func NormalizeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	n := strings.ToLower(strings.TrimSpace(msg))
	return whitespaceRE.ReplaceAllString(n, " ")
}
