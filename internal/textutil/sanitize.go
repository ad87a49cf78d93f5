package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe to use as a single path segment.
// The result is NFC-normalized so composed and decomposed Hangul map to the
// same directory. Slashes, backslashes, colons, and asterisks become dashes;
// other unsafe characters and control characters are removed. Leading and
// trailing whitespace and trailing dots are trimmed, and the relative
// segments "." and ".." collapse to the empty string.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	name = strings.TrimRight(name, ". ")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}

// SegmentOr returns the sanitized value, or fallback when nothing remains.
func SegmentOr(value, fallback string) string {
	if cleaned := SanitizeFileName(value); cleaned != "" {
		return cleaned
	}
	return fallback
}
