package db_test

import (
	"testing"

	"github.com/sneadict/backend/internal/data/db"
	"github.com/sneadict/backend/internal/data/repos/testutil"
	types "github.com/sneadict/backend/internal/domain"
)

// testutil.DB already ran the full migration chain once; running it
// again must be a no-op.
func TestRunAllIsIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	var before int64
	if err := gdb.Model(&types.SchemaVersion{}).Count(&before).Error; err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if before == 0 {
		t.Fatalf("no migrations recorded after setup")
	}

	if err := db.RunAll(gdb, log); err != nil {
		t.Fatalf("second RunAll: %v", err)
	}
	if err := db.RunAll(gdb, log); err != nil {
		t.Fatalf("third RunAll: %v", err)
	}

	var after int64
	if err := gdb.Model(&types.SchemaVersion{}).Count(&after).Error; err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if after != before {
		t.Errorf("schema_version rows %d -> %d, want unchanged", before, after)
	}
}

func TestMigrationsSeedReferenceData(t *testing.T) {
	gdb := testutil.DB(t)

	var languages int64
	if err := gdb.Model(&types.ISO639_3{}).Count(&languages).Error; err != nil {
		t.Fatalf("count iso codes: %v", err)
	}
	if languages == 0 {
		t.Errorf("iso_639_3 table is empty")
	}

	var wam types.ISO639_3
	if err := gdb.Where("code = ?", "wam").Take(&wam).Error; err != nil {
		t.Fatalf("wam code missing: %v", err)
	}

	var perms int64
	if err := gdb.Model(&types.Permission{}).Count(&perms).Error; err != nil {
		t.Fatalf("count permissions: %v", err)
	}
	if perms == 0 {
		t.Errorf("permissions table is empty")
	}
}
