package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// ApplyResult describes what a single apply did to the archive.
type ApplyResult struct {
	QueueID  int    `json:"queue_id"`
	Action   string `json:"action"` // "updated", "created", "discarded"
	RecordID int    `json:"record_id,omitempty"`
	Version  int    `json:"version,omitempty"`
}

// BulkApplyResult summarizes a whole-batch apply.
type BulkApplyResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Updated   int       `json:"updated"`
	Created   int       `json:"created"`
	Discarded int       `json:"discarded"`
	Errors    []string  `json:"errors,omitempty"`
}

// ProgressFunc receives (done, total) while a bulk apply walks the batch.
type ProgressFunc func(done, total int)

type ApplyService interface {
	// ApplySingle commits one resolved queue row under the given session.
	// Rows still pending or marked ignored cannot be applied.
	ApplySingle(dbc dbctx.Context, queueID int, userEmail string, defaultLanguageID int, sessionID uuid.UUID) (*ApplyResult, error)

	ApproveAllNewSource(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error)
	ApproveAllByRecordMatch(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error)
	ApproveNonMatchesAsNew(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error)
}

type applyService struct {
	db           *gorm.DB
	log          *logger.Logger
	queueRepo    repos.QueueRepo
	recordRepo   repos.RecordRepo
	langRepo     repos.LanguageRepo
	recLangRepo  repos.RecordLanguageRepo
	historyRepo  repos.HistoryRepo
	activityRepo repos.ActivityLogRepo
	searchSvc    SearchService
}

func NewApplyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	queueRepo repos.QueueRepo,
	recordRepo repos.RecordRepo,
	langRepo repos.LanguageRepo,
	recLangRepo repos.RecordLanguageRepo,
	historyRepo repos.HistoryRepo,
	activityRepo repos.ActivityLogRepo,
	searchSvc SearchService,
) ApplyService {
	return &applyService{
		db:           db,
		log:          baseLog.With("service", "ApplyService"),
		queueRepo:    queueRepo,
		recordRepo:   recordRepo,
		langRepo:     langRepo,
		recLangRepo:  recLangRepo,
		historyRepo:  historyRepo,
		activityRepo: activityRepo,
		searchSvc:    searchSvc,
	}
}

func (s *applyService) ApplySingle(dbc dbctx.Context, queueID int, userEmail string, defaultLanguageID int, sessionID uuid.UUID) (*ApplyResult, error) {
	if dbc.Tx != nil {
		return s.applySingle(dbc, queueID, userEmail, defaultLanguageID, sessionID)
	}
	var result *ApplyResult
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.applySingle(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, queueID, userEmail, defaultLanguageID, sessionID)
		return err
	})
	return result, err
}

func (s *applyService) applySingle(dbc dbctx.Context, queueID int, userEmail string, defaultLanguageID int, sessionID uuid.UUID) (*ApplyResult, error) {
	row, err := s.queueRepo.GetByID(dbc.Ctx, dbc.Tx, queueID)
	if err != nil {
		return nil, err
	}

	switch row.Status {
	case types.QueueStatusPending, types.QueueStatusIgnored:
		return nil, fmt.Errorf("%w: queue row %d has status %q", pkgerrors.ErrIllegalState, queueID, row.Status)
	case types.QueueStatusDiscard:
		if err := s.queueRepo.DeleteByID(dbc.Ctx, dbc.Tx, queueID); err != nil {
			return nil, err
		}
		return &ApplyResult{QueueID: queueID, Action: "discarded"}, nil
	case types.QueueStatusMatched:
		return s.applyUpdate(dbc, row, userEmail, defaultLanguageID, sessionID)
	case types.QueueStatusCreateHomonym:
		return s.applyCreate(dbc, row, userEmail, defaultLanguageID, sessionID, true)
	case types.QueueStatusCreateNew:
		return s.applyCreate(dbc, row, userEmail, defaultLanguageID, sessionID, false)
	default:
		return nil, fmt.Errorf("%w: unknown queue status %q", pkgerrors.ErrIllegalState, row.Status)
	}
}

// applyUpdate replaces the matched record's text with the uploaded entry.
// The stored record's id is authoritative: any id line in the upload is
// rewritten to it before commit.
func (s *applyService) applyUpdate(dbc dbctx.Context, row *types.MatchupQueueRow, userEmail string, defaultLanguageID int, sessionID uuid.UUID) (*ApplyResult, error) {
	if row.SuggestedRecordID == nil {
		return nil, fmt.Errorf("%w: matched row %d has no record", pkgerrors.ErrIllegalState, row.ID)
	}
	rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, *row.SuggestedRecordID)
	if err != nil {
		return nil, err
	}

	newData := mdf.NormalizeRecordID(mdf.Format(row.MDFData), rec.ID)
	entry, err := parseSingle(newData)
	if err != nil {
		return nil, fmt.Errorf("queue row %d: %w", row.ID, err)
	}

	oldData := rec.MDFData
	updates := map[string]interface{}{
		"lx":         entry.Lx,
		"hm":         hmOrDefault(entry),
		"ps":         entry.Ps,
		"ge":         entry.Ge,
		"mdf_data":   newData,
		"status":     types.RecordStatusEdited,
		"updated_by": userEmail,
	}
	if err := s.recordRepo.UpdateWithVersion(dbc.Ctx, dbc.Tx, rec.ID, rec.CurrentVersion, updates); err != nil {
		return nil, err
	}
	newVersion := rec.CurrentVersion + 1

	if err := s.reassignLanguages(dbc, rec.ID, entry, defaultLanguageID); err != nil {
		return nil, err
	}

	hist := &types.EditHistory{
		RecordID:    rec.ID,
		Version:     newVersion,
		SessionID:   sessionID,
		UserEmail:   userEmail,
		PrevData:    &oldData,
		CurrentData: newData,
	}
	if _, err := s.historyRepo.Create(dbc.Ctx, dbc.Tx, hist); err != nil {
		return nil, err
	}

	if err := s.queueRepo.DeleteByID(dbc.Ctx, dbc.Tx, row.ID); err != nil {
		return nil, err
	}
	if err := s.searchSvc.PopulateSearchEntries(dbc, []int{rec.ID}); err != nil {
		return nil, err
	}

	return &ApplyResult{QueueID: row.ID, Action: "updated", RecordID: rec.ID, Version: newVersion}, nil
}

// applyCreate inserts the uploaded entry as a new record. With homonym
// promotion the next free homonym number for the headword is stamped into
// both the column and the MDF text. The database assigns the record id,
// so the id line can only be written after the insert flushes.
func (s *applyService) applyCreate(dbc dbctx.Context, row *types.MatchupQueueRow, userEmail string, defaultLanguageID int, sessionID uuid.UUID, homonym bool) (*ApplyResult, error) {
	text := mdf.Format(row.MDFData)
	hm := 0
	if parsedHm := mdf.ExtractHomonym(text); parsedHm != nil {
		hm = *parsedHm
	}
	if homonym {
		maxHm, err := s.recordRepo.MaxHm(dbc.Ctx, dbc.Tx, row.SourceID, row.Lx)
		if err != nil {
			return nil, err
		}
		if maxHm < 1 {
			maxHm = 1 // existing unnumbered record counts as homonym 1
		}
		hm = maxHm + 1
		text = mdf.InsertHomonymAfterLx(mdf.StripHomonymLines(text), hm)
	}
	if hm == 0 {
		hm = 1
	}

	entry, err := parseSingle(text)
	if err != nil {
		return nil, fmt.Errorf("queue row %d: %w", row.ID, err)
	}

	rec := &types.Record{
		Lx:             entry.Lx,
		Hm:             hm,
		Ps:             entry.Ps,
		Ge:             entry.Ge,
		SourceID:       row.SourceID,
		MDFData:        text,
		Status:         types.RecordStatusDraft,
		CurrentVersion: 1,
		UpdatedBy:      userEmail,
	}
	created, err := s.recordRepo.Create(dbc.Ctx, dbc.Tx, []*types.Record{rec})
	if err != nil {
		return nil, err
	}
	rec = created[0]

	// Backpatch the database-assigned id into the text.
	finalData := mdf.NormalizeRecordID(text, rec.ID)
	if err := s.recordRepo.UpdateFields(dbc.Ctx, dbc.Tx, rec.ID, map[string]interface{}{
		"mdf_data": finalData,
	}); err != nil {
		return nil, err
	}

	if err := s.reassignLanguages(dbc, rec.ID, entry, defaultLanguageID); err != nil {
		return nil, err
	}

	hist := &types.EditHistory{
		RecordID:    rec.ID,
		Version:     1,
		SessionID:   sessionID,
		UserEmail:   userEmail,
		PrevData:    nil,
		CurrentData: finalData,
	}
	if _, err := s.historyRepo.Create(dbc.Ctx, dbc.Tx, hist); err != nil {
		return nil, err
	}

	if err := s.queueRepo.DeleteByID(dbc.Ctx, dbc.Tx, row.ID); err != nil {
		return nil, err
	}
	if err := s.searchSvc.PopulateSearchEntries(dbc, []int{rec.ID}); err != nil {
		return nil, err
	}

	return &ApplyResult{QueueID: row.ID, Action: "created", RecordID: rec.ID, Version: 1}, nil
}

// reassignLanguages rebuilds the record's language links. Explicit \lg
// tags win; the first one is primary. Without \lg tags a positive
// defaultLanguageID yields a single primary link, otherwise the record
// keeps no links.
func (s *applyService) reassignLanguages(dbc dbctx.Context, recordID int, entry *mdf.Entry, defaultLanguageID int) error {
	if err := s.recLangRepo.DeleteByRecordID(dbc.Ctx, dbc.Tx, recordID); err != nil {
		return err
	}
	if len(entry.Lg) > 0 {
		for i, name := range entry.Lg {
			lang, err := s.langRepo.FindOrCreateByName(dbc.Ctx, dbc.Tx, name)
			if err != nil {
				return err
			}
			link := &types.RecordLanguage{
				RecordID:   recordID,
				LanguageID: lang.ID,
				IsPrimary:  i == 0,
			}
			if _, err := s.recLangRepo.Create(dbc.Ctx, dbc.Tx, []*types.RecordLanguage{link}); err != nil {
				return err
			}
		}
		return nil
	}
	if defaultLanguageID > 0 {
		link := &types.RecordLanguage{
			RecordID:   recordID,
			LanguageID: defaultLanguageID,
			IsPrimary:  true,
		}
		_, err := s.recLangRepo.Create(dbc.Ctx, dbc.Tx, []*types.RecordLanguage{link})
		return err
	}
	return nil
}

// ApproveAllNewSource applies a first-time import as brand-new records.
// Only unresolved rows are promoted; explicit editor decisions survive:
// ignored and matched rows stay queued, discard-marked rows are discarded,
// homonym marks are applied as marked.
func (s *applyService) ApproveAllNewSource(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error) {
	return s.bulkApply(dbc, batchID, userEmail, defaultLanguageID, progress, func(row *types.MatchupQueueRow) *string {
		switch row.Status {
		case types.QueueStatusPending, types.QueueStatusCreateNew:
			st := types.QueueStatusCreateNew
			return &st
		case types.QueueStatusCreateHomonym, types.QueueStatusDiscard:
			st := row.Status
			return &st
		}
		return nil
	})
}

// ApproveAllByRecordMatch applies every matched row as an update and
// leaves the rest untouched.
func (s *applyService) ApproveAllByRecordMatch(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error) {
	return s.bulkApply(dbc, batchID, userEmail, defaultLanguageID, progress, func(row *types.MatchupQueueRow) *string {
		if row.Status == types.QueueStatusMatched {
			st := types.QueueStatusMatched
			return &st
		}
		return nil
	})
}

// ApproveNonMatchesAsNew applies every unmatched row as a new record and
// leaves matched rows for manual review.
func (s *applyService) ApproveNonMatchesAsNew(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc) (*BulkApplyResult, error) {
	return s.bulkApply(dbc, batchID, userEmail, defaultLanguageID, progress, func(row *types.MatchupQueueRow) *string {
		switch row.Status {
		case types.QueueStatusCreateNew, types.QueueStatusPending:
			st := types.QueueStatusCreateNew
			return &st
		}
		return nil
	})
}

// bulkApply walks the batch in one transaction. selectStatus returns the
// status to apply the row under, or nil to skip it. All applies share a
// single session id so the whole run can be rolled back together.
func (s *applyService) bulkApply(dbc dbctx.Context, batchID uuid.UUID, userEmail string, defaultLanguageID int, progress ProgressFunc, selectStatus func(*types.MatchupQueueRow) *string) (*BulkApplyResult, error) {
	sessionID := uuid.New()
	result := &BulkApplyResult{SessionID: sessionID}

	run := func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, tx, batchID)
		if err != nil {
			return err
		}
		total := len(rows)
		for i, row := range rows {
			status := selectStatus(row)
			if status == nil {
				if progress != nil {
					progress(i+1, total)
				}
				continue
			}
			if row.Status != *status {
				if err := s.queueRepo.UpdateFields(dbc.Ctx, tx, row.ID, map[string]interface{}{
					"status": *status,
				}); err != nil {
					return err
				}
				row.Status = *status
			}
			res, err := s.applySingle(inner, row.ID, userEmail, defaultLanguageID, sessionID)
			if err != nil {
				return fmt.Errorf("apply row %d (%s): %w", row.ID, row.Lx, err)
			}
			switch res.Action {
			case "updated":
				result.Updated++
			case "created":
				result.Created++
			case "discarded":
				result.Discarded++
			}
			if progress != nil {
				progress(i+1, total)
			}
		}

		details, err := detailsJSON(map[string]interface{}{
			"batch_id":   batchID.String(),
			"session_id": sessionID.String(),
			"updated":    result.Updated,
			"created":    result.Created,
			"discarded":  result.Discarded,
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Create(dbc.Ctx, tx, userEmail, "bulk_apply", details)
	}

	var err error
	if dbc.Tx != nil {
		err = run(dbc.Tx)
	} else {
		err = s.db.WithContext(dbc.Ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("bulk apply finished",
		"batch_id", batchID,
		"session_id", sessionID,
		"updated", result.Updated,
		"created", result.Created,
		"discarded", result.Discarded,
	)
	return result, nil
}

// parseSingle parses text expected to hold exactly one MDF entry.
func parseSingle(text string) (*mdf.Entry, error) {
	entries := mdf.Parse(text)
	if len(entries) != 1 {
		return nil, fmt.Errorf("%w: expected one MDF entry, got %d", pkgerrors.ErrInvalidArgument, len(entries))
	}
	return &entries[0], nil
}

func hmOrDefault(entry *mdf.Entry) int {
	if entry.Hm > 0 {
		return entry.Hm
	}
	return 1
}
