package services_test

import (
	"testing"

	"github.com/sneadict/backend/internal/data/repos/testutil"
)

func TestOverviewCountsPerSource(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	srcA := testutil.SeedSource(t, e.tx, "Source A")
	srcB := testutil.SeedSource(t, e.tx, "Source B")

	recA := testutil.SeedRecord(t, e.tx, srcA.ID, "\\lx nippe\n\\ge water")
	testutil.SeedRecord(t, e.tx, srcA.ID, "\\lx attuk\n\\ge deer")
	testutil.SeedRecord(t, e.tx, srcB.ID, "\\lx sepu\n\\ge river")

	if err := e.records.Approve(e.dbc, recA.ID, editorEmail); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, _, err := e.staging.StageText(e.dbc, editorEmail, srcB.ID, "\\lx keesuk\n\\ge sky", "b.mdf"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	ov, err := e.stats.Overview(e.dbc)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.TotalRecords != 3 {
		t.Errorf("total records = %d, want 3", ov.TotalRecords)
	}
	if ov.QueueDepth != 1 {
		t.Errorf("queue depth = %d, want 1", ov.QueueDepth)
	}

	byName := map[string]int{}
	for i, st := range ov.Sources {
		byName[st.SourceName] = i
	}
	a := ov.Sources[byName["Source A"]]
	if a.Total != 2 || a.Draft != 1 || a.Approved != 1 {
		t.Errorf("Source A stats = %+v", a)
	}
	b := ov.Sources[byName["Source B"]]
	if b.Total != 1 || b.Draft != 1 {
		t.Errorf("Source B stats = %+v", b)
	}
}
