package services_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sneadict/backend/internal/data/repos/testutil"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
)

func TestRollbackSessionUndoesUpdateAndCreate(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")
	rec := testutil.SeedRecord(t, e.tx, src.ID, "\\lx nippe\n\\ps n\n\\ge water")
	originalData := rec.MDFData

	upload := "\\lx nippe\n\\ps n\n\\ge water, liquid\n\n\\lx mukki\n\\ps n\n\\ge child"
	batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, upload, "t.mdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	sugs, err := e.match.SuggestMatches(e.dbc, batchID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	sessionID := uuid.New()
	var createdID int
	for _, sug := range sugs {
		res, err := e.apply.ApplySingle(e.dbc, sug.QueueID, editorEmail, 0, sessionID)
		if err != nil {
			t.Fatalf("apply %q: %v", sug.Lx, err)
		}
		if res.Action == "created" {
			createdID = res.RecordID
		}
	}
	if createdID == 0 {
		t.Fatalf("no record was created")
	}

	result, err := e.rollback.RollbackSession(e.dbc, sessionID, editorEmail)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if result.RolledBackCount != 1 || result.DeletedCount != 1 {
		t.Fatalf("result = %+v, want 1 restored and 1 deleted", result)
	}

	restored, err := e.recordRepo.GetByID(e.dbc.Ctx, e.tx, rec.ID)
	if err != nil {
		t.Fatalf("reload restored record: %v", err)
	}
	if restored.MDFData != originalData {
		t.Errorf("restored mdf_data differs from pre-session text:\n got: %s\nwant: %s", restored.MDFData, originalData)
	}
	if restored.Ge != "water" {
		t.Errorf("ge projection = %q, want %q", restored.Ge, "water")
	}
	// Restoring is itself a write, so the version token moves forward.
	if restored.CurrentVersion != 3 {
		t.Errorf("current_version = %d, want 3", restored.CurrentVersion)
	}

	if _, err := e.recordRepo.GetByID(e.dbc.Ctx, e.tx, createdID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("created record still present after rollback: %v", err)
	}
	if entries, err := e.searchRepo.GetByRecordID(e.dbc.Ctx, e.tx, createdID); err != nil || len(entries) != 0 {
		t.Errorf("search entries for deleted record: %v %v", entries, err)
	}

	// Session history is gone, so a second rollback has nothing to do.
	if _, err := e.rollback.RollbackSession(e.dbc, sessionID, editorEmail); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("second rollback err = %v, want ErrNotFound", err)
	}
}

func TestListRollbackableSessionsExcludesRolledBack(t *testing.T) {
	e := newEnv(t)
	testutil.SeedUser(t, e.tx, editorEmail)
	src := testutil.SeedSource(t, e.tx, "Trumbull Dictionary")

	stageAndApply := func(text string) uuid.UUID {
		t.Helper()
		batchID, _, err := e.staging.StageText(e.dbc, editorEmail, src.ID, text, "t.mdf")
		if err != nil {
			t.Fatalf("stage: %v", err)
		}
		sugs, err := e.match.SuggestMatches(e.dbc, batchID)
		if err != nil {
			t.Fatalf("suggest: %v", err)
		}
		sessionID := uuid.New()
		if _, err := e.apply.ApplySingle(e.dbc, sugs[0].QueueID, editorEmail, 0, sessionID); err != nil {
			t.Fatalf("apply: %v", err)
		}
		return sessionID
	}

	kept := stageAndApply("\\lx attuk\n\\ge deer")
	undone := stageAndApply("\\lx askug\n\\ge snake")

	if _, err := e.rollback.RollbackSession(e.dbc, undone, editorEmail); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	ids, err := e.rollback.ListRollbackableSessions(e.dbc, editorEmail, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := map[uuid.UUID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[kept] {
		t.Errorf("live session %s missing from list", kept)
	}
	if found[undone] {
		t.Errorf("rolled-back session %s still listed", undone)
	}
}
