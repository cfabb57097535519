package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// migration is one ordered schema or data step. Every step must be
// idempotent (IF NOT EXISTS guards, backfill predicates) because a crash
// between a step and its ledger row makes the step run again on the next
// startup.
type migration struct {
	version     int
	description string
	run         func(tx *gorm.DB) error
}

func migrations() []migration {
	return []migration{
		{1, "base schema, unique live-record index, trigram lx index", migrateBaseSchema},
		{2, "backfill record_languages from \\lg lines in mdf_data", migrateBackfillRecordLanguages},
		{3, "drop legacy records.language_id column", migrateDropLegacyLanguageColumn},
		{4, "search_entries covering index", migrateSearchCoveringIndex},
	}
}

// RunAll brings the schema to the newest registered version and then runs
// the idempotent data seeds. The schema_version ledger is the single
// source of truth: a fresh install at version N holds exactly N rows.
func RunAll(gdb *gorm.DB, logg *logger.Logger) error {
	log := logg.With("component", "migrations")

	if err := ensureExtensions(gdb); err != nil {
		return err
	}
	if err := gdb.AutoMigrate(&types.SchemaVersion{}); err != nil {
		return fmt.Errorf("create schema_version ledger: %w", err)
	}

	var current int
	row := gdb.Model(&types.SchemaVersion{}).Select("COALESCE(MAX(version), 0)").Row()
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations() {
		if m.version <= current {
			continue
		}
		log.Info("applying migration", "version", m.version, "description", m.description)
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := m.run(tx); err != nil {
				return err
			}
			// Ledger row lands only when the step succeeded, so a failed
			// version is retried on the next startup.
			return tx.Create(&types.SchemaVersion{
				Version:     m.version,
				Description: m.description,
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}

	if err := seedPermissions(gdb, log); err != nil {
		return err
	}
	if err := seedISO6393(gdb, log); err != nil {
		return err
	}
	return nil
}

func ensureExtensions(gdb *gorm.DB) error {
	for _, ext := range []string{"uuid-ossp", "vector", "pg_trgm"} {
		if err := gdb.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS %q;`, ext)).Error; err != nil {
			return fmt.Errorf("enable %s extension: %w", ext, err)
		}
	}
	return nil
}

func migrateBaseSchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(
		&types.User{},
		&types.Source{},
		&types.Language{},
		&types.Record{},
		&types.RecordLanguage{},
		&types.MatchupQueueRow{},
		&types.EditHistory{},
		&types.SearchEntry{},
		&types.UserActivityLog{},
		&types.Permission{},
		&types.ISO639_3{},
	); err != nil {
		return err
	}
	// Fuzzy headword lookup for the editor UI.
	if err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_lx_trgm
		ON records USING GIN (lx gin_trgm_ops);
	`).Error; err != nil {
		return fmt.Errorf("create idx_records_lx_trgm: %w", err)
	}
	return nil
}

// migrateBackfillRecordLanguages builds record_languages for records that
// predate the \lg convention. \lg lines in mdf_data win; records without
// any fall back to the legacy records.language_id column when it still
// exists.
func migrateBackfillRecordLanguages(tx *gorm.DB) error {
	hasLegacy := tx.Migrator().HasColumn(&types.Record{}, "language_id")

	type rec struct {
		ID         int
		MDFData    string
		LanguageID *int
	}
	var rows []rec
	q := tx.Table("records").
		Where("id NOT IN (SELECT record_id FROM record_languages)")
	if hasLegacy {
		q = q.Select("id", "mdf_data", "language_id")
	} else {
		q = q.Select("id", "mdf_data")
	}
	if err := q.Find(&rows).Error; err != nil {
		return err
	}

	for _, r := range rows {
		names := parseLgNames(r.MDFData)
		if len(names) > 0 {
			for i, name := range names {
				lang, err := findOrCreateLanguageByName(tx, name)
				if err != nil {
					return err
				}
				if err := tx.Create(&types.RecordLanguage{
					RecordID:   r.ID,
					LanguageID: lang.ID,
					IsPrimary:  i == 0,
				}).Error; err != nil {
					return err
				}
			}
			continue
		}
		if hasLegacy && r.LanguageID != nil {
			if err := tx.Create(&types.RecordLanguage{
				RecordID:   r.ID,
				LanguageID: *r.LanguageID,
				IsPrimary:  true,
			}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func migrateDropLegacyLanguageColumn(tx *gorm.DB) error {
	if !tx.Migrator().HasColumn(&types.Record{}, "language_id") {
		return nil
	}
	return tx.Exec(`ALTER TABLE records DROP COLUMN IF EXISTS language_id;`).Error
}

func migrateSearchCoveringIndex(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_search_entries_term_lower
		ON search_entries (lower(term), entry_type);
	`).Error
}

// findOrCreateLanguageByName matches on name first, then on code, and
// finally creates a language whose code is the lowercased name.
func findOrCreateLanguageByName(tx *gorm.DB, name string) (*types.Language, error) {
	var lang types.Language
	err := tx.Where("name = ?", name).Take(&lang).Error
	if err == nil {
		return &lang, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	err = tx.Where("code = ?", name).Take(&lang).Error
	if err == nil {
		return &lang, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	lang = types.Language{Code: codeForName(name), Name: name}
	if err := tx.Create(&lang).Error; err != nil {
		return nil, err
	}
	return &lang, nil
}

func (s *PostgresService) RunAll() error {
	s.log.Info("running database migrations")
	if err := RunAll(s.db, s.log); err != nil {
		s.log.Error("migrations failed", "error", err)
		return err
	}
	return nil
}
