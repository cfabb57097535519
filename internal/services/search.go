package services

import (
	"fmt"

	"github.com/sneadict/backend/internal/data/repos"
	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// SearchService owns the derived index. All search_entries writes route
// through PopulateSearchEntries; apply and rollback call it inside their
// own transaction so the index commits atomically with the record
// mutation.
type SearchService interface {
	PopulateSearchEntries(dbc dbctx.Context, recordIDs []int) error
	Lookup(dbc dbctx.Context, term string, limit int) ([]*types.SearchEntry, error)
}

type searchService struct {
	db              *gorm.DB
	log             *logger.Logger
	recordRepo      repos.RecordRepo
	searchEntryRepo repos.SearchEntryRepo
}

func NewSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recordRepo repos.RecordRepo,
	searchEntryRepo repos.SearchEntryRepo,
) SearchService {
	return &searchService{
		db:              db,
		log:             baseLog.With("service", "SearchService"),
		recordRepo:      recordRepo,
		searchEntryRepo: searchEntryRepo,
	}
}

// PopulateSearchEntries rebuilds the index rows for each record as a pure
// function of its mdf_data: one lx row plus one row per va/se/cf/ve value.
func (s *searchService) PopulateSearchEntries(dbc dbctx.Context, recordIDs []int) error {
	if len(recordIDs) == 0 {
		return nil
	}
	if err := s.searchEntryRepo.DeleteByRecordIDs(dbc.Ctx, dbc.Tx, recordIDs); err != nil {
		return fmt.Errorf("delete search entries: %w", err)
	}
	var entries []*types.SearchEntry
	for _, id := range recordIDs {
		rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, id)
		if err != nil {
			return fmt.Errorf("load record %d: %w", id, err)
		}
		if rec.IsDeleted {
			continue
		}
		entries = append(entries, deriveSearchEntries(rec)...)
	}
	if len(entries) == 0 {
		return nil
	}
	if _, err := s.searchEntryRepo.Create(dbc.Ctx, dbc.Tx, entries); err != nil {
		return fmt.Errorf("insert search entries: %w", err)
	}
	return nil
}

func (s *searchService) Lookup(dbc dbctx.Context, term string, limit int) ([]*types.SearchEntry, error) {
	return s.searchEntryRepo.Search(dbc.Ctx, dbc.Tx, term, limit)
}

func deriveSearchEntries(rec *types.Record) []*types.SearchEntry {
	parsed := mdf.Parse(rec.MDFData)
	if len(parsed) == 0 {
		return nil
	}
	e := parsed[0]
	out := []*types.SearchEntry{
		{RecordID: rec.ID, Term: e.Lx, EntryType: types.SearchTypeLx},
	}
	add := func(terms []string, entryType string) {
		for _, t := range terms {
			out = append(out, &types.SearchEntry{RecordID: rec.ID, Term: t, EntryType: entryType})
		}
	}
	add(e.Va, types.SearchTypeVa)
	add(e.Se, types.SearchTypeSe)
	add(e.Cf, types.SearchTypeCf)
	add(e.Ve, types.SearchTypeVe)
	return out
}
