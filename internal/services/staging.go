package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// StagingService owns the matchup queue's intake side: uploads become
// batches of pending rows, with intra-batch homonym numbers assigned
// before anything is persisted.
type StagingService interface {
	Stage(dbc dbctx.Context, userEmail string, sourceID int, entries []mdf.Entry, filename string) (uuid.UUID, int, error)
	StageText(dbc dbctx.Context, userEmail string, sourceID int, mdfText, filename string) (uuid.UUID, int, error)
	ListPendingBatches(dbc dbctx.Context, userEmail string) ([]*repos.BatchSummary, error)
	GetPendingBatchMDF(dbc dbctx.Context, batchID uuid.UUID) (string, error)
}

type stagingService struct {
	db           *gorm.DB
	log          *logger.Logger
	queueRepo    repos.QueueRepo
	activityRepo repos.ActivityLogRepo
}

func NewStagingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	queueRepo repos.QueueRepo,
	activityRepo repos.ActivityLogRepo,
) StagingService {
	return &stagingService{
		db:           db,
		log:          baseLog.With("service", "StagingService"),
		queueRepo:    queueRepo,
		activityRepo: activityRepo,
	}
}

func (s *stagingService) StageText(dbc dbctx.Context, userEmail string, sourceID int, mdfText, filename string) (uuid.UUID, int, error) {
	return s.Stage(dbc, userEmail, sourceID, mdf.Parse(mdfText), filename)
}

func (s *stagingService) Stage(dbc dbctx.Context, userEmail string, sourceID int, entries []mdf.Entry, filename string) (uuid.UUID, int, error) {
	if len(entries) == 0 {
		return uuid.Nil, 0, fmt.Errorf("%w: no parsable entries", pkgerrors.ErrInvalidArgument)
	}

	assignIntraBatchHomonyms(entries)

	batchID := uuid.New()
	rows := make([]*types.MatchupQueueRow, len(entries))
	for i, e := range entries {
		rows[i] = &types.MatchupQueueRow{
			BatchID:   batchID,
			UserEmail: userEmail,
			SourceID:  sourceID,
			Filename:  filename,
			Lx:        e.Lx,
			MDFData:   e.MDFData,
			Status:    types.QueueStatusPending,
		}
	}
	if _, err := s.queueRepo.Create(dbc.Ctx, dbc.Tx, rows); err != nil {
		return uuid.Nil, 0, fmt.Errorf("stage batch: %w", err)
	}

	details, _ := detailsJSON(map[string]interface{}{
		"batch_id":  batchID.String(),
		"source_id": sourceID,
		"filename":  filename,
		"rows":      len(rows),
	})
	if err := s.activityRepo.Create(dbc.Ctx, dbc.Tx, userEmail, "stage_batch", details); err != nil {
		s.log.Warn("activity log write failed", "error", err)
	}

	s.log.Info("staged batch", "batch_id", batchID, "rows", len(rows), "source_id", sourceID)
	return batchID, len(rows), nil
}

func (s *stagingService) ListPendingBatches(dbc dbctx.Context, userEmail string) ([]*repos.BatchSummary, error) {
	return s.queueRepo.ListBatches(dbc.Ctx, dbc.Tx, userEmail)
}

// GetPendingBatchMDF returns the batch's rows as one canonical MDF
// document for download, blank-line separated in staging order.
func (s *stagingService) GetPendingBatchMDF(dbc dbctx.Context, batchID uuid.UUID) (string, error) {
	rows, err := s.queueRepo.GetByBatchID(dbc.Ctx, dbc.Tx, batchID)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", pkgerrors.ErrNotFound
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, mdf.Format(row.MDFData))
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// assignIntraBatchHomonyms numbers same-headword entries within one
// upload. Entries are grouped by diacritics-stripped lexeme; inside any
// group of two or more, every entry without an explicit \hm gets the
// smallest positive integer not already taken, inserted right after its
// \lx line. Explicit numbers are kept.
func assignIntraBatchHomonyms(entries []mdf.Entry) {
	groups := make(map[string][]int)
	for i := range entries {
		key := mdf.StripDiacritics(entries[i].Lx)
		groups[key] = append(groups[key], i)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		idxs := groups[k]
		if len(idxs) < 2 {
			continue
		}
		used := make(map[int]bool)
		for _, i := range idxs {
			if hm := mdf.ExtractHomonym(entries[i].MDFData); hm != nil {
				used[*hm] = true
			}
		}
		for _, i := range idxs {
			if mdf.ExtractHomonym(entries[i].MDFData) != nil {
				continue
			}
			n := 1
			for used[n] {
				n++
			}
			used[n] = true
			entries[i].Hm = n
			entries[i].MDFData = mdf.InsertHomonymAfterLx(entries[i].MDFData, n)
		}
	}
}

func detailsJSON(m map[string]interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
