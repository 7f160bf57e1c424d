package ir

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ValueErrorMax is the number of characters of an offending value kept in
// problem messages.
const ValueErrorMax = 128

// ValidUTF8 reports whether s is a valid UTF-8 sequence.
func ValidUTF8(s string) bool {
	_, _, err := transform.String(unicode.UTF8Validator, s)
	return err == nil
}

// CharLen returns the length of s in characters.
func CharLen(s string) int {
	return utf8.RuneCountInString(s)
}

// DisplayValue prepares a value for a problem message: invalid sequences
// are replaced with '?' and long values are cut to ValueErrorMax characters.
func DisplayValue(s string) string {
	s = strings.ToValidUTF8(s, "?")
	if utf8.RuneCountInString(s) <= ValueErrorMax {
		return s
	}
	runes := []rune(s)
	return string(runes[:ValueErrorMax]) + "..."
}
