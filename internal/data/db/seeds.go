package db

import (
	_ "embed"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/logger"
)

//go:embed iso_639_3.tsv
var iso6393TSV string

// defaultPermissions are the baseline capability grants. Org and team are
// normalised to lowercase before insert.
var defaultPermissions = []types.Permission{
	{Org: "SNEA", Team: "Editors", Cap: "records:write"},
	{Org: "SNEA", Team: "Editors", Cap: "matchup:apply"},
	{Org: "SNEA", Team: "Editors", Cap: "matchup:stage"},
	{Org: "SNEA", Team: "Reviewers", Cap: "records:approve"},
	{Org: "SNEA", Team: "Reviewers", Cap: "sessions:rollback"},
	{Org: "SNEA", Team: "Admins", Cap: "sources:manage"},
	{Org: "SNEA", Team: "Admins", Cap: "export:bundle"},
}

func seedPermissions(gdb *gorm.DB, log *logger.Logger) error {
	var n int64
	if err := gdb.Model(&types.Permission{}).Count(&n).Error; err != nil {
		return fmt.Errorf("count permissions: %w", err)
	}
	if n > 0 {
		return nil
	}
	log.Info("seeding permissions", "count", len(defaultPermissions))
	for _, p := range defaultPermissions {
		p.Org = strings.ToLower(p.Org)
		p.Team = strings.ToLower(p.Team)
		if err := gdb.Create(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s/%s/%s: %w", p.Org, p.Team, p.Cap, err)
		}
	}
	return nil
}

func seedISO6393(gdb *gorm.DB, log *logger.Logger) error {
	var n int64
	if err := gdb.Model(&types.ISO639_3{}).Count(&n).Error; err != nil {
		return fmt.Errorf("count iso_639_3: %w", err)
	}
	if n > 0 {
		return nil
	}

	var rows []types.ISO639_3
	for _, line := range strings.Split(iso6393TSV, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 2 {
			continue
		}
		row := types.ISO639_3{Code: parts[0], Name: parts[1], Scope: "I"}
		if len(parts) == 3 && parts[2] != "" {
			row.Scope = parts[2]
		}
		rows = append(rows, row)
	}
	log.Info("seeding iso_639_3", "count", len(rows))
	if len(rows) == 0 {
		return nil
	}
	return gdb.CreateInBatches(rows, 200).Error
}

// parseLgNames extracts the ordered \lg values of the first record in
// text, used by the record_languages backfill.
func parseLgNames(text string) []string {
	entries := mdf.Parse(text)
	if len(entries) == 0 {
		return nil
	}
	return entries[0].Lg
}

// codeForName derives a language code for an ad-hoc \lg name that matches
// nothing in the languages table: lowercase, spaces collapsed to '-'.
func codeForName(name string) string {
	code := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(code), "-")
}
