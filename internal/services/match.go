package services

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// RowSuggestion is the per-row outcome of a suggestion run: the persisted
// suggestion plus advisory annotations the editor sees during review.
type RowSuggestion struct {
	QueueID                 int      `json:"queue_id"`
	Lx                      string   `json:"lx"`
	Status                  string   `json:"status"`
	SuggestedRecordID       *int     `json:"suggested_record_id,omitempty"`
	MatchType               *string  `json:"match_type,omitempty"`
	CrossSourceMatches      []string `json:"cross_source_matches,omitempty"`
	RecordIDConflict        bool     `json:"record_id_conflict"`
	RecordIDConflictSources []string `json:"record_id_conflict_sources,omitempty"`
}

// DuplicateRemoval reports rows removed because their upload was already
// stored verbatim.
type DuplicateRemoval struct {
	RemovedCount int      `json:"removed_count"`
	Headwords    []string `json:"headwords"`
}

// HmMismatch flags an upload identical to its suggested record except for
// the homonym number. Advisory only.
type HmMismatch struct {
	QueueID    int    `json:"queue_id"`
	Lx         string `json:"lx"`
	RecordID   int    `json:"record_id"`
	UploadedHm int    `json:"uploaded_hm"`
	RecordHm   int    `json:"record_hm"`
}

// DistanceFlag marks a record-id match whose headwords sit suspiciously
// far apart. Advisory only.
type DistanceFlag struct {
	QueueID  int    `json:"queue_id"`
	Lx       string `json:"lx"`
	RecordID int    `json:"record_id"`
	RecordLx string `json:"record_lx"`
	Distance int    `json:"distance"`
}

const DefaultHeadwordDistanceThreshold = 3

type MatchService interface {
	SuggestMatches(dbc dbctx.Context, batchID uuid.UUID) ([]*RowSuggestion, error)
	Rematch(dbc dbctx.Context, batchID uuid.UUID) ([]*RowSuggestion, error)
	AutoRemoveExactDuplicates(dbc dbctx.Context, batchID uuid.UUID) (*DuplicateRemoval, error)
	FlagHmMismatches(dbc dbctx.Context, batchID uuid.UUID) ([]*HmMismatch, error)
	FlagHeadwordDistance(dbc dbctx.Context, batchID uuid.UUID, threshold int) ([]*DistanceFlag, error)

	ConfirmMatch(dbc dbctx.Context, queueID int, recordID *int) error
	MarkAsHomonym(dbc dbctx.Context, queueID int) error
	MarkAsIgnored(dbc dbctx.Context, queueID int) error
	MarkAsDiscard(dbc dbctx.Context, queueID int) error
	DiscardAll(dbc dbctx.Context, batchID uuid.UUID) (int64, error)
	DiscardMarked(dbc dbctx.Context, batchID uuid.UUID) (int64, error)
}

type matchService struct {
	db         *gorm.DB
	log        *logger.Logger
	queueRepo  repos.QueueRepo
	recordRepo repos.RecordRepo
	sourceRepo repos.SourceRepo
}

func NewMatchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	queueRepo repos.QueueRepo,
	recordRepo repos.RecordRepo,
	sourceRepo repos.SourceRepo,
) MatchService {
	return &matchService{
		db:         db,
		log:        baseLog.With("service", "MatchService"),
		queueRepo:  queueRepo,
		recordRepo: recordRepo,
		sourceRepo: sourceRepo,
	}
}

// matchIndex holds the per-batch lookup maps built over live records.
// Same-source maps carry full records; other-source maps carry only the
// source names the UI surfaces as indicators.
type matchIndex struct {
	sameExact map[string][]*types.Record
	sameBase  map[string][]*types.Record
	sameByID  map[int]*types.Record

	otherExact map[string]map[string]bool
	otherBase  map[string]map[string]bool
	otherByID  map[int]map[string]bool
}

func (s *matchService) buildIndex(dbc dbctx.Context, sourceID int) (*matchIndex, error) {
	idx := &matchIndex{
		sameExact:  map[string][]*types.Record{},
		sameBase:   map[string][]*types.Record{},
		sameByID:   map[int]*types.Record{},
		otherExact: map[string]map[string]bool{},
		otherBase:  map[string]map[string]bool{},
		otherByID:  map[int]map[string]bool{},
	}

	same, err := s.recordRepo.GetLiveBySourceID(dbc.Ctx, dbc.Tx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load same-source records: %w", err)
	}
	for _, rec := range same {
		idx.sameExact[rec.Lx] = append(idx.sameExact[rec.Lx], rec)
		base := mdf.StripDiacritics(rec.Lx)
		idx.sameBase[base] = append(idx.sameBase[base], rec)
		idx.sameByID[rec.ID] = rec
	}

	others, err := s.recordRepo.GetLiveByOtherSources(dbc.Ctx, dbc.Tx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load other-source records: %w", err)
	}
	if len(others) > 0 {
		sources, err := s.sourceRepo.List(dbc.Ctx, dbc.Tx)
		if err != nil {
			return nil, fmt.Errorf("load sources: %w", err)
		}
		nameByID := make(map[int]string, len(sources))
		for _, src := range sources {
			nameByID[src.ID] = src.Name
		}
		addName := func(m map[string]map[string]bool, key, name string) {
			if m[key] == nil {
				m[key] = map[string]bool{}
			}
			m[key][name] = true
		}
		for _, rec := range others {
			name := nameByID[rec.SourceID]
			addName(idx.otherExact, rec.Lx, name)
			addName(idx.otherBase, mdf.StripDiacritics(rec.Lx), name)
			if idx.otherByID[rec.ID] == nil {
				idx.otherByID[rec.ID] = map[string]bool{}
			}
			idx.otherByID[rec.ID][name] = true
		}
	}

	return idx, nil
}

// SuggestMatches annotates every pending row of the batch. Precedence:
// record-id match, exact lexeme (preferring the uploaded \hm), then
// diacritics-stripped base form. The winning suggestion and match type
// are written back to the row; cross-source indicators and record-id
// conflicts are returned but never persisted.
func (s *matchService) SuggestMatches(dbc dbctx.Context, batchID uuid.UUID) ([]*RowSuggestion, error) {
	rows, err := s.queueRepo.GetByBatchAndStatus(dbc.Ctx, dbc.Tx, batchID, []string{types.QueueStatusPending})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*RowSuggestion{}, nil
	}

	idx, err := s.buildIndex(dbc, rows[0].SourceID)
	if err != nil {
		return nil, err
	}

	out := make([]*RowSuggestion, 0, len(rows))
	for _, row := range rows {
		sug := s.suggestRow(idx, row)

		updates := map[string]interface{}{
			"status":              sug.Status,
			"suggested_record_id": sug.SuggestedRecordID,
			"match_type":          sug.MatchType,
		}
		if err := s.queueRepo.UpdateFields(dbc.Ctx, dbc.Tx, row.ID, updates); err != nil {
			return nil, fmt.Errorf("update queue row %d: %w", row.ID, err)
		}
		out = append(out, sug)
	}

	s.log.Info("suggested matches", "batch_id", batchID, "rows", len(out))
	return out, nil
}

func (s *matchService) suggestRow(idx *matchIndex, row *types.MatchupQueueRow) *RowSuggestion {
	sug := &RowSuggestion{QueueID: row.ID, Lx: row.Lx, Status: types.QueueStatusCreateNew}

	uploadedID := mdf.ExtractRecordID(row.MDFData)
	uploadedHm := mdf.ExtractHomonym(row.MDFData)
	base := mdf.StripDiacritics(row.Lx)

	var chosen *types.Record
	var matchType string

	switch {
	case uploadedID != nil && idx.sameByID[*uploadedID] != nil:
		chosen = idx.sameByID[*uploadedID]
		matchType = types.MatchTypeExact
	case len(idx.sameExact[row.Lx]) > 0:
		cands := idx.sameExact[row.Lx]
		chosen = cands[0]
		if uploadedHm != nil {
			for _, c := range cands {
				if c.Hm == *uploadedHm {
					chosen = c
					break
				}
			}
		}
		matchType = types.MatchTypeExact
	case len(idx.sameBase[base]) > 0:
		chosen = idx.sameBase[base][0]
		matchType = types.MatchTypeBaseForm
	}

	if chosen != nil {
		id := chosen.ID
		mt := matchType
		sug.SuggestedRecordID = &id
		sug.MatchType = &mt
		sug.Status = types.QueueStatusMatched
	}

	// Annotations are independent of the chosen rule.
	crossSet := map[string]bool{}
	for name := range idx.otherExact[row.Lx] {
		crossSet[name] = true
	}
	for name := range idx.otherBase[base] {
		crossSet[name] = true
	}
	sug.CrossSourceMatches = sortedKeys(crossSet)

	if uploadedID != nil && len(idx.otherByID[*uploadedID]) > 0 {
		sug.RecordIDConflict = true
		sug.RecordIDConflictSources = sortedKeys(idx.otherByID[*uploadedID])
	}

	return sug
}

// Rematch resets every still-queued row of the batch to pending and runs
// the suggestion pass again, e.g. after the authoritative records changed
// mid-review.
func (s *matchService) Rematch(dbc dbctx.Context, batchID uuid.UUID) ([]*RowSuggestion, error) {
	rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, dbc.Tx, batchID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := s.queueRepo.UpdateFields(dbc.Ctx, dbc.Tx, row.ID, map[string]interface{}{
			"status":              types.QueueStatusPending,
			"suggested_record_id": nil,
			"match_type":          nil,
		}); err != nil {
			return nil, fmt.Errorf("reset queue row %d: %w", row.ID, err)
		}
	}
	return s.SuggestMatches(dbc, batchID)
}

// AutoRemoveExactDuplicates drops rows whose upload equals the suggested
// record byte for byte once both sides lose their record-id lines.
func (s *matchService) AutoRemoveExactDuplicates(dbc dbctx.Context, batchID uuid.UUID) (*DuplicateRemoval, error) {
	rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, dbc.Tx, batchID)
	if err != nil {
		return nil, err
	}

	result := &DuplicateRemoval{Headwords: []string{}}
	for _, row := range rows {
		if row.SuggestedRecordID == nil {
			continue
		}
		rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, *row.SuggestedRecordID)
		if err != nil {
			if err == pkgerrors.ErrNotFound {
				continue
			}
			return nil, err
		}
		uploaded := mdf.StripRecordIDLines(mdf.Format(row.MDFData))
		stored := mdf.StripRecordIDLines(mdf.Format(rec.MDFData))
		if uploaded != stored {
			continue
		}
		if err := s.queueRepo.DeleteByID(dbc.Ctx, dbc.Tx, row.ID); err != nil {
			return nil, fmt.Errorf("delete duplicate row %d: %w", row.ID, err)
		}
		result.RemovedCount++
		result.Headwords = append(result.Headwords, row.Lx)
	}

	s.log.Info("removed exact duplicates", "batch_id", batchID, "count", result.RemovedCount)
	return result, nil
}

// FlagHmMismatches finds rows identical to their suggested record except
// for the homonym number. No writes.
func (s *matchService) FlagHmMismatches(dbc dbctx.Context, batchID uuid.UUID) ([]*HmMismatch, error) {
	rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, dbc.Tx, batchID)
	if err != nil {
		return nil, err
	}

	flags := []*HmMismatch{}
	for _, row := range rows {
		if row.SuggestedRecordID == nil {
			continue
		}
		rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, *row.SuggestedRecordID)
		if err != nil {
			if err == pkgerrors.ErrNotFound {
				continue
			}
			return nil, err
		}
		uploaded := mdf.StripHomonymLines(mdf.StripRecordIDLines(mdf.Format(row.MDFData)))
		stored := mdf.StripHomonymLines(mdf.StripRecordIDLines(mdf.Format(rec.MDFData)))
		if uploaded != stored {
			continue
		}
		uploadedHm := 1
		if hm := mdf.ExtractHomonym(row.MDFData); hm != nil {
			uploadedHm = *hm
		}
		if uploadedHm == rec.Hm {
			continue
		}
		flags = append(flags, &HmMismatch{
			QueueID:    row.ID,
			Lx:         row.Lx,
			RecordID:   rec.ID,
			UploadedHm: uploadedHm,
			RecordHm:   rec.Hm,
		})
	}
	return flags, nil
}

// FlagHeadwordDistance checks rows whose suggestion came from the
// uploaded record-id line: a large edit distance between headwords
// usually means the id line was copied from the wrong record. No writes.
func (s *matchService) FlagHeadwordDistance(dbc dbctx.Context, batchID uuid.UUID, threshold int) ([]*DistanceFlag, error) {
	if threshold <= 0 {
		threshold = DefaultHeadwordDistanceThreshold
	}
	rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, dbc.Tx, batchID)
	if err != nil {
		return nil, err
	}

	flags := []*DistanceFlag{}
	for _, row := range rows {
		if row.SuggestedRecordID == nil {
			continue
		}
		uploadedID := mdf.ExtractRecordID(row.MDFData)
		if uploadedID == nil || *uploadedID != *row.SuggestedRecordID {
			continue
		}
		rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, *row.SuggestedRecordID)
		if err != nil {
			if err == pkgerrors.ErrNotFound {
				continue
			}
			return nil, err
		}
		d := levenshtein.ComputeDistance(mdf.NFD(row.Lx), mdf.NFD(rec.Lx))
		if d <= threshold {
			continue
		}
		flags = append(flags, &DistanceFlag{
			QueueID:  row.ID,
			Lx:       row.Lx,
			RecordID: rec.ID,
			RecordLx: rec.Lx,
			Distance: d,
		})
	}
	return flags, nil
}

// ConfirmMatch marks a row matched, optionally overriding the suggested
// record with an editor-chosen one.
func (s *matchService) ConfirmMatch(dbc dbctx.Context, queueID int, recordID *int) error {
	row, err := s.queueRepo.GetByID(dbc.Ctx, dbc.Tx, queueID)
	if err != nil {
		return err
	}
	target := row.SuggestedRecordID
	if recordID != nil {
		if _, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, *recordID); err != nil {
			return err
		}
		target = recordID
	}
	if target == nil {
		return fmt.Errorf("%w: row %d has no suggested record", pkgerrors.ErrInvalidArgument, queueID)
	}
	return s.queueRepo.UpdateFields(dbc.Ctx, dbc.Tx, queueID, map[string]interface{}{
		"status":              types.QueueStatusMatched,
		"suggested_record_id": target,
	})
}

func (s *matchService) MarkAsHomonym(dbc dbctx.Context, queueID int) error {
	return s.setStatus(dbc, queueID, types.QueueStatusCreateHomonym)
}

func (s *matchService) MarkAsIgnored(dbc dbctx.Context, queueID int) error {
	return s.setStatus(dbc, queueID, types.QueueStatusIgnored)
}

func (s *matchService) MarkAsDiscard(dbc dbctx.Context, queueID int) error {
	return s.setStatus(dbc, queueID, types.QueueStatusDiscard)
}

func (s *matchService) setStatus(dbc dbctx.Context, queueID int, status string) error {
	return s.queueRepo.UpdateFields(dbc.Ctx, dbc.Tx, queueID, map[string]interface{}{
		"status": status,
	})
}

func (s *matchService) DiscardAll(dbc dbctx.Context, batchID uuid.UUID) (int64, error) {
	return s.queueRepo.DeleteByBatchID(dbc.Ctx, dbc.Tx, batchID)
}

func (s *matchService) DiscardMarked(dbc dbctx.Context, batchID uuid.UUID) (int64, error) {
	return s.queueRepo.DeleteByBatchAndStatus(dbc.Ctx, dbc.Tx, batchID, types.QueueStatusDiscard)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
