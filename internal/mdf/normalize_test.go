package mdf

import "testing"

func TestStripDiacritics(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ēsh", "esh"},
		{"wôpi", "wopi"},
		{"mōhtā́w", "mohtaw"},
		{"plain", "plain"},
		{"", ""},
		{"ôâê", "oae"},
	}
	for _, c := range cases {
		if got := StripDiacritics(c.in); got != c.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripDiacriticsMatchesAcrossCompositionForms(t *testing.T) {
	// Precomposed U+0113 vs e + combining macron U+0304.
	a := "ēsh"
	b := "ēsh"
	if StripDiacritics(a) != StripDiacritics(b) {
		t.Errorf("composition forms diverge: %q vs %q", StripDiacritics(a), StripDiacritics(b))
	}
}

func TestNFDStableForComparison(t *testing.T) {
	if NFD("ē") != NFD("ē") {
		t.Errorf("NFD forms differ for equivalent input")
	}
}
