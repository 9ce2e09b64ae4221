package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// ToggleCase returns the other case of a cased letter. Only single-rune
// upper/lower mapping is done, no full case folding.
func ToggleCase(r rune) (rune, bool) {
	if !unicode.IsLetter(r) {
		return r, false
	}
	alt := unicode.ToLower(r)
	if alt == r {
		alt = unicode.ToUpper(r)
	}
	return alt, alt != r
}

// StringContainsIgnoreCase checks if string contains substring case-insensitively
func StringContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n uint) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}
	var b strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return b.String()
}
