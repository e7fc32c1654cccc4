// Package strings provides the name normalization used for client matching.
package strings

import (
	"strings"
	"unicode"
)

// CollapseSpace trims s and folds every run of whitespace into one space.
//
//	CollapseSpace("  Acme   Pty\tLtd ") // "Acme Pty Ltd"
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AlphaNumFold drops every rune that is not a letter or digit and lowercases the rest.
//
//	AlphaNumFold("Acme Pty. Ltd (AU)") // "acmeptyltdau"
func AlphaNumFold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// ContainsEither reports whether a contains b or b contains a.
// Empty inputs never match.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// DedupeNames collapses whitespace in each name and removes empties and
// duplicates. Order is preserved.
func DedupeNames(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		name := CollapseSpace(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			result = append(result, name)
		}
	}

	return result
}
