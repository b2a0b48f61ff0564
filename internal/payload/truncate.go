package payload

import "unicode/utf8"

const (
	// MaxPayloadLength bounds truncated payload text, ellipsis included.
	MaxPayloadLength = 1000

	ellipsis = "..."
)

// Abbreviate shortens s to at most max characters, ending with "..." when
// anything was cut.
func Abbreviate(s string, max int) string {
	if max <= len(ellipsis) {
		max = len(ellipsis) + 1
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-len(ellipsis)]) + ellipsis
}
