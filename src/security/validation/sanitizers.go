package validation

import (
	"strings"
	"unicode"
)

// SanitizeFilename strips path separators and non-printable characters from
// an uploaded filename before it is stored or logged.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(name))
}
