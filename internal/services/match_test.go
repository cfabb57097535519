package services_test

import (
	"strconv"
	"testing"

	"github.com/sneadict/backend/internal/data/repos/testutil"
	types "github.com/sneadict/backend/internal/domain"
)

func TestSuggestMatchesPrecedence(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")

	wopiRec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx wôpi\n\\ps adj\n\\ge white")
	keteauRec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx keteau\n\\ps v\n\\ge to make")

	upload := "" +
		// record-id line wins even though the lexeme matches a different record
		"\\lx wôpi\n\\ge white thing\n\\nt Record: " + strconv.Itoa(keteauRec.ID) + "\n\n" +
		// exact lexeme
		"\\lx keteau\n\\ge to create"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "trumbull.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(sugs) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(sugs))
	}
	s0 := sugs[0]
	if s0.SuggestedRecordID == nil || *s0.SuggestedRecordID != keteauRec.ID {
		t.Errorf("record-id rule: suggested %v, want %d (not the wôpi record %d)", s0.SuggestedRecordID, keteauRec.ID, wopiRec.ID)
	}
	s1 := sugs[1]
	if s1.SuggestedRecordID == nil || *s1.SuggestedRecordID != keteauRec.ID {
		t.Errorf("exact rule: suggested %v, want %d", s1.SuggestedRecordID, keteauRec.ID)
	}
}

func TestSuggestMatchesRules(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx wôpi\n\\ps adj\n\\ge white")

	upload := "\\lx wopi\n\\ge whitish\n\n\\lx pummee\n\\ge grease"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	var base, none int = -1, -1
	for i, s := range sugs {
		switch s.Lx {
		case "wopi":
			base = i
		case "pummee":
			none = i
		}
	}
	if base < 0 || none < 0 {
		t.Fatalf("missing suggestions: %+v", sugs)
	}
	if sugs[base].Status != types.QueueStatusMatched ||
		sugs[base].MatchType == nil || *sugs[base].MatchType != types.MatchTypeBaseForm ||
		sugs[base].SuggestedRecordID == nil || *sugs[base].SuggestedRecordID != rec.ID {
		t.Errorf("base-form suggestion = %+v", sugs[base])
	}
	if sugs[none].Status != types.QueueStatusCreateNew || sugs[none].SuggestedRecordID != nil {
		t.Errorf("no-match suggestion = %+v", sugs[none])
	}
}

func TestSuggestMatchesExactPrefersHomonym(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")

	testutil.SeedRecord(t, e.tx, src.ID, "\\lx manit\n\\hm 1\n\\ge spirit")
	hm2 := testutil.SeedRecord(t, e.tx, src.ID, "\\lx manit\n\\hm 2\n\\ge god")

	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, "\\lx manit\n\\hm 2\n\\ge deity", "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sugs[0].SuggestedRecordID == nil || *sugs[0].SuggestedRecordID != hm2.ID {
		t.Errorf("suggested %v, want homonym-2 record %d", sugs[0].SuggestedRecordID, hm2.ID)
	}
}

func TestCrossSourceAnnotationsNotPersisted(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Source A")
	srcB := testutil.SeedSource(t, e.tx, "Source B")
	testutil.SeedRecord(t, e.tx, srcB.ID, "\\lx nippe\n\\ge water")

	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, "\\lx nippe\n\\ge water", "a.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	// Other sources never produce a suggestion, only an indicator.
	if sugs[0].Status != types.QueueStatusCreateNew {
		t.Errorf("status = %q, want create_new", sugs[0].Status)
	}
	if len(sugs[0].CrossSourceMatches) != 1 || sugs[0].CrossSourceMatches[0] != "Source B" {
		t.Errorf("cross-source matches = %v", sugs[0].CrossSourceMatches)
	}
	rows, err := e.queueRepo.GetByBatchID(e.dbc.Ctx, e.tx, batchID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if rows[0].SuggestedRecordID != nil {
		t.Errorf("cross-source indicator leaked into the queue row: %+v", rows[0])
	}
}

func TestAutoRemoveExactDuplicates(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx nippe\n\\ps n\n\\ge water")

	// Re-upload the stored text verbatim (record-id line included) plus
	// one genuinely new entry.
	upload := rec.MDFData + "\n\n\\lx attuk\n\\ps n\n\\ge deer"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := e.match.SuggestMatches(e.dbc, batchID); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	removed, err := e.match.AutoRemoveExactDuplicates(e.dbc, batchID)
	if err != nil {
		t.Fatalf("auto-remove: %v", err)
	}
	if removed.RemovedCount != 1 {
		t.Fatalf("removed %d rows, want 1: %+v", removed.RemovedCount, removed)
	}
	rows, err := e.queueRepo.GetByBatchID(e.dbc.Ctx, e.tx, batchID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows left = %d, want 1", len(rows))
	}
}

func TestAutoRemoveTreatsLayoutVariantsAsDuplicates(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	testutil.SeedRecord(t, e.tx, src.ID, "\\lx nippe\n\\ps n\n\\ge water")

	// Same content, different layout: indented tag lines and no record-id
	// line. Stored text is canonical, so the upload is a duplicate once
	// both sides are canonicalised.
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, "  \\lx nippe\n\t\\ps n\n  \\ge water", "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := e.match.SuggestMatches(e.dbc, batchID); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	removed, err := e.match.AutoRemoveExactDuplicates(e.dbc, batchID)
	if err != nil {
		t.Fatalf("auto-remove: %v", err)
	}
	if removed.RemovedCount != 1 {
		t.Fatalf("removed %d rows, want 1: %+v", removed.RemovedCount, removed)
	}
}

func TestFlagHmMismatches(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx manit\n\\hm 2\n\\ge god")

	// Identical content except the homonym number is absent.
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, "\\lx manit\n\\ge god", "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := e.match.SuggestMatches(e.dbc, batchID); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	flags, err := e.match.FlagHmMismatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(flags))
	}
	if flags[0].RecordID != rec.ID || flags[0].UploadedHm != 1 || flags[0].RecordHm != 2 {
		t.Errorf("flag = %+v", flags[0])
	}

	// Advisory only: the queue row is untouched.
	rows, err := e.queueRepo.GetByBatchID(e.dbc.Ctx, e.tx, batchID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if rows[0].Status != types.QueueStatusMatched {
		t.Errorf("row status = %q after advisory flag", rows[0].Status)
	}
}

func TestFlagHeadwordDistance(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx wunneetupanatamwe\n\\ge holy")

	// Upload claims the record by id but carries an unrelated headword.
	upload := "\\lx sepu\n\\ge river\n\\nt Record: " + strconv.Itoa(rec.ID)
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := e.match.SuggestMatches(e.dbc, batchID); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	flags, err := e.match.FlagHeadwordDistance(e.dbc, batchID, 0)
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(flags))
	}
	if flags[0].RecordID != rec.ID || flags[0].Distance <= 3 {
		t.Errorf("flag = %+v", flags[0])
	}
}

func TestRematchAfterRecordChange(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")

	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, "\\lx attuk\n\\ge deer", "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sugs[0].Status != types.QueueStatusCreateNew {
		t.Fatalf("initial status = %q", sugs[0].Status)
	}

	// A matching record appears after the first pass.
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx attuk\n\\ps n\n\\ge deer")
	sugs, err = e.match.Rematch(e.dbc, batchID)
	if err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if sugs[0].Status != types.QueueStatusMatched || *sugs[0].SuggestedRecordID != rec.ID {
		t.Errorf("rematch suggestion = %+v", sugs[0])
	}
}

func TestDiscardMarkedRows(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")

	upload := "\\lx askug\n\\ge snake\n\n\\lx mishquashim\n\\ge red fox"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	rows, err := e.queueRepo.GetByBatchID(e.dbc.Ctx, e.tx, batchID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if err := e.match.MarkAsDiscard(e.dbc, rows[0].ID); err != nil {
		t.Fatalf("mark discard: %v", err)
	}

	n, err := e.match.DiscardMarked(e.dbc, batchID)
	if err != nil {
		t.Fatalf("discard marked: %v", err)
	}
	if n != 1 {
		t.Errorf("discarded %d rows, want 1", n)
	}
	left, err := e.queueRepo.GetByBatchID(e.dbc.Ctx, e.tx, batchID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("rows left = %d, want 1", len(left))
	}
}
