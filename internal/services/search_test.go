package services_test

import (
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/sneadict/backend/internal/data/repos/testutil"
	"github.com/sneadict/backend/internal/mdf"
)

// The index must be a pure function of the stored text: after an apply,
// the search_entries rows for the record equal the lx/va/se/cf/ve values
// of a fresh re-parse.
func TestApplyRebuildsSearchEntriesFromStoredMDF(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Eliot Bible Glossary")

	upload := "\\lx wunneetupanatamwe\n\\ps adj\n\\ge holy\n\\va wunetupanatamwe\n\\cf manit\n\n\\se wunneetupanatamwe ayeuonk\n\\ge holy place"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "eliot.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	res, err := e.apply.ApplySingle(e.dbc, sugs[0].QueueID, editorEmail, 0, uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, err := e.recordRepo.GetByID(e.dbc.Ctx, e.tx, res.RecordID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries := mdf.Parse(rec.MDFData)
	if len(entries) != 1 {
		t.Fatalf("stored mdf parses to %d entries, want 1", len(entries))
	}

	want := map[string]string{entries[0].Lx: "lx"}
	for _, v := range entries[0].Va {
		want[v] = "va"
	}
	for _, v := range entries[0].Se {
		want[v] = "se"
	}
	for _, v := range entries[0].Cf {
		want[v] = "cf"
	}
	for _, v := range entries[0].Ve {
		want[v] = "ve"
	}

	rows, err := e.searchRepo.GetByRecordID(e.dbc.Ctx, e.tx, rec.ID)
	if err != nil {
		t.Fatalf("search rows: %v", err)
	}
	if len(rows) != len(want) {
		t.Fatalf("index has %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for _, row := range rows {
		typ, ok := want[row.Term]
		if !ok {
			t.Errorf("unexpected index term %q", row.Term)
			continue
		}
		if row.EntryType != typ {
			t.Errorf("term %q indexed as %q, want %q", row.Term, row.EntryType, typ)
		}
	}
}

func TestLookupFindsVariantsAndSubentries(t *testing.T) {
	e := newEnv(t)
	src := testutil.SeedSource(t, e.tx, "Josiah Cotton Vocabulary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx attuk\n\\ps n\n\\ge deer\n\\va adtuk\n\\va ahtuk")

	if err := e.search.PopulateSearchEntries(e.dbc, []int{rec.ID}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	for _, term := range []string{"attuk", "adtuk", "ahtuk", "ADTUK"} {
		hits, err := e.search.Lookup(e.dbc, term, 10)
		if err != nil {
			t.Fatalf("lookup %q: %v", term, err)
		}
		if len(hits) != 1 || hits[0].RecordID != rec.ID {
			t.Errorf("lookup %q = %+v, want record %d", term, hits, rec.ID)
		}
	}

	hits, err := e.search.Lookup(e.dbc, "nippe", 10)
	if err != nil {
		t.Fatalf("lookup miss: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("lookup of absent term returned %+v", hits)
	}
}

// Repopulating is idempotent and replaces rather than appends.
func TestPopulateSearchEntriesReplacesOldRows(t *testing.T) {
	e := newEnv(t)
	src := testutil.SeedSource(t, e.tx, "Experience Mayhew Letters")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx sepu\n\\ps n\n\\ge river\n\\va seip")

	if err := e.search.PopulateSearchEntries(e.dbc, []int{rec.ID}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := e.search.PopulateSearchEntries(e.dbc, []int{rec.ID}); err != nil {
		t.Fatalf("repopulate: %v", err)
	}

	rows, err := e.searchRepo.GetByRecordID(e.dbc.Ctx, e.tx, rec.ID)
	if err != nil {
		t.Fatalf("search rows: %v", err)
	}
	terms := make([]string, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, row.Term)
	}
	sort.Strings(terms)
	if len(terms) != 2 || terms[0] != "seip" || terms[1] != "sepu" {
		t.Fatalf("index terms = %v, want [seip sepu]", terms)
	}
}
