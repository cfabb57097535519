package mdf

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSingleEntry(t *testing.T) {
	text := "\\lx wachu\n\\ps n\n\\ge hill\n\\va wadchu\n\\cf wachuash\n\\nt borrowed spelling\n\\nt Record: 42"
	entries := Parse(text)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Lx != "wachu" {
		t.Errorf("lx = %q", e.Lx)
	}
	if e.Hm != 1 {
		t.Errorf("hm = %d, want default 1", e.Hm)
	}
	if e.Ps != "n" || e.Ge != "hill" {
		t.Errorf("ps/ge = %q/%q", e.Ps, e.Ge)
	}
	if !reflect.DeepEqual(e.Va, []string{"wadchu"}) {
		t.Errorf("va = %v", e.Va)
	}
	if !reflect.DeepEqual(e.Cf, []string{"wachuash"}) {
		t.Errorf("cf = %v", e.Cf)
	}
	if e.RecordID == nil || *e.RecordID != 42 {
		t.Errorf("record id = %v, want 42", e.RecordID)
	}
	if e.MDFData != text {
		t.Errorf("mdf_data not verbatim:\n%q", e.MDFData)
	}
}

func TestParseMultipleRecords(t *testing.T) {
	text := "\\lx mukki\n\\ps n\n\\ge child\n\n\\lx mukkies\n\\ps n\n\\ge small child"
	entries := Parse(text)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Lx != "mukki" || entries[1].Lx != "mukkies" {
		t.Errorf("lx values = %q, %q", entries[0].Lx, entries[1].Lx)
	}
}

func TestParseCanonicalRecordIsOneEntry(t *testing.T) {
	// Canonical form keeps blank lines before \se and before the record-id
	// line; those must not split the record.
	text := "\\lx keesuk\n\\ps n\n\\ge sky\n\n\\se keesukquieu\n\\ge it is day\n\n\\nt Record: 7"
	entries := Parse(text)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if !reflect.DeepEqual(e.Se, []string{"keesukquieu"}) {
		t.Errorf("se = %v", e.Se)
	}
	if e.RecordID == nil || *e.RecordID != 7 {
		t.Errorf("record id = %v", e.RecordID)
	}
}

func TestParseExplicitHomonymAndFirstWins(t *testing.T) {
	entries := Parse("\\lx esh\n\\hm 2\n\\hm 3\n\\ps n")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Hm != 2 {
		t.Errorf("hm = %d, want 2", entries[0].Hm)
	}
}

func TestParseContinuationLines(t *testing.T) {
	entries := Parse("\\lx askook\n\\ge snake,\n   serpent\n\\ps n")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Ge != "snake, serpent" {
		t.Errorf("ge = %q", entries[0].Ge)
	}
}

func TestParseLanguageTags(t *testing.T) {
	entries := Parse("\\lx nippe\n\\lg Massachusett\n\\lg Narragansett\n\\ge water")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !reflect.DeepEqual(entries[0].Lg, []string{"Massachusett", "Narragansett"}) {
		t.Errorf("lg = %v", entries[0].Lg)
	}
}

func TestParseDropsBlocksWithoutLx(t *testing.T) {
	entries := Parse("\\ps n\n\\ge orphan block\n\n\\lx ohke\n\\ge land")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Lx != "ohke" {
		t.Errorf("lx = %q", entries[0].Lx)
	}
}

func TestParseDropsOrphanBlockMidFile(t *testing.T) {
	// A blank-separated block that opens with a plain field tag is not a
	// continuation; it must be dropped, not merged into the record above.
	entries := Parse("\\lx anum\n\\ps n\n\\ge dog\n\n\\ps n\n\\ge stray gloss")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Ge != "dog" {
		t.Errorf("ge = %q, want the record's own gloss", e.Ge)
	}
	if strings.Contains(e.MDFData, "stray gloss") {
		t.Errorf("orphan block leaked into mdf_data:\n%s", e.MDFData)
	}
}

func TestParseDropsOrphanBlockBetweenRecords(t *testing.T) {
	entries := Parse("\\lx ohke\n\\ge land\n\n\\ge floating junk\n\n\\lx nippe\n\\ge water")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Lx != "ohke" || entries[1].Lx != "nippe" {
		t.Errorf("lx values = %q, %q", entries[0].Lx, entries[1].Lx)
	}
	if strings.Contains(entries[0].MDFData, "junk") || strings.Contains(entries[1].MDFData, "junk") {
		t.Errorf("orphan block attached to a neighbour: %q / %q",
			entries[0].MDFData, entries[1].MDFData)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\n", " \t\n  \n"} {
		if got := Parse(in); len(got) != 0 {
			t.Errorf("Parse(%q) = %d entries, want 0", in, len(got))
		}
	}
}

func TestParseOtherNtLinesAreRemarks(t *testing.T) {
	entries := Parse("\\lx wompi\n\\nt see Trumbull p.201\n\\nt Record: 9\n\\nt Record: 10")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].RecordID == nil || *entries[0].RecordID != 9 {
		t.Errorf("record id = %v, want first match 9", entries[0].RecordID)
	}
}

func TestExtractHomonym(t *testing.T) {
	if got := ExtractHomonym("\\lx a\n\\hm 3"); got == nil || *got != 3 {
		t.Errorf("got %v, want 3", got)
	}
	if got := ExtractHomonym("\\lx a\n\\ps n"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := ExtractHomonym("\\lx a\n\\hm zero"); got != nil {
		t.Errorf("got %v, want nil for non-integer", got)
	}
}

func TestExtractRecordID(t *testing.T) {
	if got := ExtractRecordID("\\lx a\n\\nt Record: 15"); got == nil || *got != 15 {
		t.Errorf("got %v, want 15", got)
	}
	if got := ExtractRecordID("\\lx a\n\\nt a remark"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
