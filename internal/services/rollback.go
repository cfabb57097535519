package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// RollbackResult summarizes an undone session.
type RollbackResult struct {
	SessionID       uuid.UUID `json:"session_id"`
	DeletedCount    int       `json:"deleted_count"`
	RolledBackCount int       `json:"rolled_back_count"`
}

type RollbackService interface {
	// RollbackSession undoes every edit the session made: records the
	// session created are deleted outright, records it mutated are
	// restored to their pre-session text. The whole rollback is one
	// transaction.
	RollbackSession(dbc dbctx.Context, sessionID uuid.UUID, userEmail string) (*RollbackResult, error)

	// ListRollbackableSessions returns the user's recent session ids,
	// excluding sessions already rolled back.
	ListRollbackableSessions(dbc dbctx.Context, userEmail string, limit int) ([]uuid.UUID, error)
}

type rollbackService struct {
	db           *gorm.DB
	log          *logger.Logger
	historyRepo  repos.HistoryRepo
	recordRepo   repos.RecordRepo
	searchRepo   repos.SearchEntryRepo
	activityRepo repos.ActivityLogRepo
	searchSvc    SearchService
}

func NewRollbackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	historyRepo repos.HistoryRepo,
	recordRepo repos.RecordRepo,
	searchRepo repos.SearchEntryRepo,
	activityRepo repos.ActivityLogRepo,
	searchSvc SearchService,
) RollbackService {
	return &rollbackService{
		db:           db,
		log:          baseLog.With("service", "RollbackService"),
		historyRepo:  historyRepo,
		recordRepo:   recordRepo,
		searchRepo:   searchRepo,
		activityRepo: activityRepo,
		searchSvc:    searchSvc,
	}
}

func (s *rollbackService) RollbackSession(dbc dbctx.Context, sessionID uuid.UUID, userEmail string) (*RollbackResult, error) {
	if dbc.Tx != nil {
		return s.rollbackSession(dbc, sessionID, userEmail)
	}
	var result *RollbackResult
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.rollbackSession(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, sessionID, userEmail)
		return err
	})
	return result, err
}

func (s *rollbackService) rollbackSession(dbc dbctx.Context, sessionID uuid.UUID, userEmail string) (*RollbackResult, error) {
	rows, err := s.historyRepo.GetBySessionID(dbc.Ctx, dbc.Tx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no edits recorded for session %s", pkgerrors.ErrNotFound, sessionID)
	}

	// Rows come back ordered by (record_id, version), so the first row
	// per record is the session's earliest snapshot of it.
	type recordEdits struct {
		earliestPrev *string
		created      bool
	}
	perRecord := map[int]*recordEdits{}
	order := []int{}
	for _, row := range rows {
		if _, ok := perRecord[row.RecordID]; ok {
			continue
		}
		perRecord[row.RecordID] = &recordEdits{
			earliestPrev: row.PrevData,
			created:      row.PrevData == nil,
		}
		order = append(order, row.RecordID)
	}

	result := &RollbackResult{SessionID: sessionID}
	survivors := []int{}
	for _, recordID := range order {
		re := perRecord[recordID]
		if re.created {
			if err := s.historyRepo.DeleteByRecordID(dbc.Ctx, dbc.Tx, recordID); err != nil {
				return nil, err
			}
			if err := s.searchRepo.DeleteByRecordIDs(dbc.Ctx, dbc.Tx, []int{recordID}); err != nil {
				return nil, err
			}
			if err := s.recordRepo.FullDeleteByIDs(dbc.Ctx, dbc.Tx, []int{recordID}); err != nil {
				return nil, err
			}
			result.DeletedCount++
			continue
		}

		rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, recordID)
		if err != nil {
			return nil, err
		}
		restored := *re.earliestPrev
		entry, err := parseSingle(restored)
		if err != nil {
			return nil, fmt.Errorf("record %d history snapshot: %w", recordID, err)
		}
		if err := s.recordRepo.UpdateWithVersion(dbc.Ctx, dbc.Tx, recordID, rec.CurrentVersion, map[string]interface{}{
			"lx":         entry.Lx,
			"hm":         hmOrDefault(entry),
			"ps":         entry.Ps,
			"ge":         entry.Ge,
			"mdf_data":   restored,
			"updated_by": userEmail,
		}); err != nil {
			return nil, err
		}
		if err := s.historyRepo.DeleteBySessionAndRecord(dbc.Ctx, dbc.Tx, sessionID, recordID); err != nil {
			return nil, err
		}
		result.RolledBackCount++
		survivors = append(survivors, recordID)
	}

	if len(survivors) > 0 {
		if err := s.searchSvc.PopulateSearchEntries(dbc, survivors); err != nil {
			return nil, err
		}
	}

	details, err := detailsJSON(map[string]interface{}{
		"session_id":        sessionID.String(),
		"deleted_count":     result.DeletedCount,
		"rolled_back_count": result.RolledBackCount,
	})
	if err != nil {
		return nil, err
	}
	if err := s.activityRepo.Create(dbc.Ctx, dbc.Tx, userEmail, "batch_rollback", details); err != nil {
		return nil, err
	}

	s.log.Info("rolled back session",
		"session_id", sessionID,
		"deleted", result.DeletedCount,
		"restored", result.RolledBackCount,
	)
	return result, nil
}

func (s *rollbackService) ListRollbackableSessions(dbc dbctx.Context, userEmail string, limit int) ([]uuid.UUID, error) {
	ids, err := s.historyRepo.ListSessionIDs(dbc.Ctx, dbc.Tx, userEmail, limit)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		done, err := s.activityRepo.HasAction(dbc.Ctx, dbc.Tx, "batch_rollback", id.String())
		if err != nil {
			return nil, err
		}
		if !done {
			out = append(out, id)
		}
	}
	return out, nil
}
