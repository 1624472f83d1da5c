package validate

import (
	"strings"
	"unicode/utf8"
)

// Required reports whether value has any non-whitespace content.
func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxRunes reports whether value is at most limit characters long. A non-positive limit
// means unlimited.
func MaxRunes(value string, limit int) bool {
	return limit <= 0 || utf8.RuneCountInString(value) <= limit
}
