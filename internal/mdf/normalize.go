package mdf

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// StripDiacritics returns s with every Unicode combining mark removed
// after NFD decomposition. SNEA orthographies disagree on diacritics, so
// matching runs over base forms; storage always keeps the original.
func StripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NFD returns the canonical decomposition of s. Edit-distance comparisons
// run over NFD so precomposed and decomposed spellings measure equal.
func NFD(s string) string {
	return norm.NFD.String(s)
}
