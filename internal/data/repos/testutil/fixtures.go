package testutil

import (
	"testing"

	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"gorm.io/gorm"
)

// SeedSource inserts a source for a test, inside the test transaction.
func SeedSource(tb testing.TB, tx *gorm.DB, name string) *types.Source {
	tb.Helper()
	src := &types.Source{Name: name}
	if err := tx.Create(src).Error; err != nil {
		tb.Fatalf("seed source %q: %v", name, err)
	}
	return src
}

// SeedLanguage inserts a language row.
func SeedLanguage(tb testing.TB, tx *gorm.DB, code, name string) *types.Language {
	tb.Helper()
	lang := &types.Language{Code: code, Name: name}
	if err := tx.Create(lang).Error; err != nil {
		tb.Fatalf("seed language %q: %v", code, err)
	}
	return lang
}

// SeedRecord inserts a live record with canonical MDF derived from the
// given raw text; the record-id line is normalised after insert so the
// invariant "mdf_data ends with its own id" holds.
func SeedRecord(tb testing.TB, tx *gorm.DB, sourceID int, rawMDF string) *types.Record {
	tb.Helper()
	entries := mdf.Parse(rawMDF)
	if len(entries) != 1 {
		tb.Fatalf("SeedRecord: expected 1 entry in %q, got %d", rawMDF, len(entries))
	}
	e := entries[0]
	hm := e.Hm
	if hm == 0 {
		hm = 1
	}
	rec := &types.Record{
		Lx:             e.Lx,
		Hm:             hm,
		Ps:             e.Ps,
		Ge:             e.Ge,
		SourceID:       sourceID,
		Status:         types.RecordStatusDraft,
		MDFData:        mdf.Format(rawMDF),
		CurrentVersion: 1,
	}
	if err := tx.Create(rec).Error; err != nil {
		tb.Fatalf("seed record %q: %v", e.Lx, err)
	}
	canonical := mdf.NormalizeRecordID(rec.MDFData, rec.ID)
	if err := tx.Model(rec).Update("mdf_data", canonical).Error; err != nil {
		tb.Fatalf("normalize seeded record %q: %v", e.Lx, err)
	}
	rec.MDFData = canonical
	return rec
}

// SeedUser inserts an editor row so activity-log and history writes can
// reference it.
func SeedUser(tb testing.TB, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{Email: email, Name: "Test Editor"}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user %q: %v", email, err)
	}
	return u
}
