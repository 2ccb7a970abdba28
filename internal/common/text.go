package common

import (
	"strings"
	"unicode/utf8"
)

// NormalizeText trims surrounding whitespace from a user supplied field.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

// TextLength returns the number of code points in s.
func TextLength(s string) int {
	return utf8.RuneCountInString(s)
}

// IsImageContentType reports whether ct declares an image media type.
// Parameters such as "; charset=" are ignored.
func IsImageContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "image/") && len(ct) > len("image/")
}
