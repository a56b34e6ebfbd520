// Package names canonicalizes free-text guest names into comparable keys.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// lowerTag selects language-neutral case mapping.
var lowerTag = language.Und

// Normalize lower-cases name, drops every rune that is not a letter, digit,
// space, hyphen or apostrophe, and collapses whitespace runs into single
// spaces. The result is the sole key used for invitee uniqueness and
// matching, and Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	// cases.Caser keeps internal state, so one is built per call.
	lowered := cases.Lower(lowerTag).String(norm.NFC.String(name))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	// Dropped runes can leave composable letters adjacent; compose again.
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

// NormalizeAll normalizes every name, preserving order.
func NormalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = Normalize(n)
	}
	return out
}
