package mdf

import (
	"strings"
	"testing"
)

func TestFormatStripsLeadingWhitespaceOnTagLines(t *testing.T) {
	got := Format("  \\lx wachu\n\t\\ps n")
	want := "\\lx wachu\n\\ps n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCollapsesBlankRuns(t *testing.T) {
	got := Format("\\lx a\n\\ps n\n\n\n\n\\ge gloss")
	want := "\\lx a\n\\ps n\n\n\\ge gloss"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatInsertsBlankBeforeSubentries(t *testing.T) {
	got := Format("\\lx keesuk\n\\ge sky\n\\se keesukquieu\n\\ge it is day\n\\se keesuckquand\n\\ge sky spirit")
	want := "\\lx keesuk\n\\ge sky\n\n\\se keesukquieu\n\\ge it is day\n\n\\se keesuckquand\n\\ge sky spirit"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatLeadingSubentryGetsNoBlank(t *testing.T) {
	got := Format("\\se orphan\n\\ge sub only")
	if strings.HasPrefix(got, "\n") {
		t.Errorf("leading blank inserted: %q", got)
	}
}

func TestFormatMovesRecordIDLineLast(t *testing.T) {
	got := Format("\\lx wompi\n\\nt Record: 3\n\\ps adj\n\\ge white")
	want := "\\lx wompi\n\\ps adj\n\\ge white\n\n\\nt Record: 3"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatKeepsRemarkNtLinesInPlace(t *testing.T) {
	got := Format("\\lx wompi\n\\nt from Trumbull\n\\ge white\n\\nt Record: 3")
	want := "\\lx wompi\n\\nt from Trumbull\n\\ge white\n\n\\nt Record: 3"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatMultiRecordKeepsEachRecordID(t *testing.T) {
	got := Format("\\lx anum\n\\ps n\n\\nt Record: 1\n\n\\lx pushaug\n\\ps n\n\\nt Record: 2")
	want := "\\lx anum\n\\ps n\n\n\\nt Record: 1\n\n\\lx pushaug\n\\ps n\n\n\\nt Record: 2"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if n := strings.Count(got, "\\nt Record:"); n != 2 {
		t.Errorf("record-id lines = %d, want one per record", n)
	}
}

func TestFormatIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"\\lx a",
		"  \\lx a\n\n\n\\ps n\n\\se sub\n\\nt Record: 1",
		"\\lx keesuk\n\\ge sky\n\\se one\n\\se two\n\\nt Record: 12",
		"\\lx x\n\\ps n\n\n\n\\nt Record: 5\n\n\\ge tail gloss",
		"\\lx a\n\\ps n\n\\nt Record: 3\n\n\\lx b\n\\se sub\n\\nt Record: 4",
	}
	for _, in := range inputs {
		once := Format(in)
		twice := Format(once)
		if once != twice {
			t.Errorf("Format not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestNormalizeRecordID(t *testing.T) {
	got := NormalizeRecordID("\\lx a\n\\ps n\n\n\\nt Record: 4\n\\nt Record: 9", 17)
	want := "\\lx a\n\\ps n\n\n\\nt Record: 17"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := strings.Count(got, "\\nt Record:"); n != 1 {
		t.Errorf("record-id lines = %d, want 1", n)
	}
}

func TestNormalizeRecordIDKeepsRemarks(t *testing.T) {
	got := NormalizeRecordID("\\lx a\n\\nt a remark\n\\nt Record: 4", 2)
	if !strings.Contains(got, "\\nt a remark") {
		t.Errorf("remark lost: %q", got)
	}
	if !strings.HasSuffix(got, "\\nt Record: 2") {
		t.Errorf("record id not last: %q", got)
	}
}

func TestNormalizeThenFormatStable(t *testing.T) {
	text := NormalizeRecordID(Format("  \\lx a\n\\ps n\n\\nt Record: 1"), 8)
	if Format(text) != text {
		t.Errorf("canonical form unstable:\n%q\n%q", text, Format(text))
	}
	entries := Parse(text)
	if len(entries) != 1 || entries[0].RecordID == nil || *entries[0].RecordID != 8 {
		t.Errorf("round trip lost record id: %+v", entries)
	}
}

func TestStripRecordIDLines(t *testing.T) {
	a := "\\lx X\n\\ps n\n\n\\nt Record: 5"
	b := "\\lx X\n\\ps n"
	if StripRecordIDLines(a) != StripRecordIDLines(b) {
		t.Errorf("records differing only by id line should compare equal:\n%q\n%q",
			StripRecordIDLines(a), StripRecordIDLines(b))
	}
}

func TestStripHomonymLines(t *testing.T) {
	got := StripHomonymLines("\\lx esh\n\\hm 2\n\\ps n")
	want := "\\lx esh\n\\ps n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertHomonymAfterLx(t *testing.T) {
	got := InsertHomonymAfterLx("\\lx esh\n\\ps n", 2)
	want := "\\lx esh\n\\hm 2\n\\ps n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
