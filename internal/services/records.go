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

// RecordDetail pairs a record with its language links.
type RecordDetail struct {
	Record    *types.Record           `json:"record"`
	Languages []*types.RecordLanguage `json:"languages"`
}

type RecordService interface {
	Get(dbc dbctx.Context, id int) (*RecordDetail, error)
	ListBySource(dbc dbctx.Context, sourceID int, status string, offset, limit int) ([]*types.Record, int64, error)

	// SaveMDF commits a direct editor save of one record's MDF text.
	// expectedVersion is the version the editor loaded; a stale value
	// fails with ErrVersionConflict. Each save runs under its own
	// session id, returned for later rollback.
	SaveMDF(dbc dbctx.Context, id int, text string, expectedVersion int, userEmail string) (uuid.UUID, error)

	SoftDelete(dbc dbctx.Context, id int, userEmail string) error
	Approve(dbc dbctx.Context, id int, reviewerEmail string) error
	History(dbc dbctx.Context, id int) ([]*types.EditHistory, error)

	CreateSource(dbc dbctx.Context, name, description string) (*types.Source, error)
	GetSource(dbc dbctx.Context, id int) (*types.Source, error)
	ListSources(dbc dbctx.Context) ([]*types.Source, error)
	DeleteSource(dbc dbctx.Context, id int) error
}

type recordService struct {
	db          *gorm.DB
	log         *logger.Logger
	recordRepo  repos.RecordRepo
	sourceRepo  repos.SourceRepo
	langRepo    repos.LanguageRepo
	recLangRepo repos.RecordLanguageRepo
	historyRepo repos.HistoryRepo
	searchSvc   SearchService
}

func NewRecordService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recordRepo repos.RecordRepo,
	sourceRepo repos.SourceRepo,
	langRepo repos.LanguageRepo,
	recLangRepo repos.RecordLanguageRepo,
	historyRepo repos.HistoryRepo,
	searchSvc SearchService,
) RecordService {
	return &recordService{
		db:          db,
		log:         baseLog.With("service", "RecordService"),
		recordRepo:  recordRepo,
		sourceRepo:  sourceRepo,
		langRepo:    langRepo,
		recLangRepo: recLangRepo,
		historyRepo: historyRepo,
		searchSvc:   searchSvc,
	}
}

func (s *recordService) Get(dbc dbctx.Context, id int) (*RecordDetail, error) {
	rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, id)
	if err != nil {
		return nil, err
	}
	langs, err := s.recLangRepo.GetByRecordID(dbc.Ctx, dbc.Tx, id)
	if err != nil {
		return nil, err
	}
	return &RecordDetail{Record: rec, Languages: langs}, nil
}

func (s *recordService) ListBySource(dbc dbctx.Context, sourceID int, status string, offset, limit int) ([]*types.Record, int64, error) {
	return s.recordRepo.ListBySource(dbc.Ctx, dbc.Tx, sourceID, status, offset, limit)
}

func (s *recordService) SaveMDF(dbc dbctx.Context, id int, text string, expectedVersion int, userEmail string) (uuid.UUID, error) {
	sessionID := uuid.New()

	run := func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		rec, err := s.recordRepo.GetByID(dbc.Ctx, tx, id)
		if err != nil {
			return err
		}
		if rec.CurrentVersion != expectedVersion {
			return pkgerrors.ErrVersionConflict
		}

		newData := mdf.NormalizeRecordID(mdf.Format(text), rec.ID)
		entry, err := parseSingle(newData)
		if err != nil {
			return err
		}

		oldData := rec.MDFData
		if err := s.recordRepo.UpdateWithVersion(dbc.Ctx, tx, id, expectedVersion, map[string]interface{}{
			"lx":         entry.Lx,
			"hm":         hmOrDefault(entry),
			"ps":         entry.Ps,
			"ge":         entry.Ge,
			"mdf_data":   newData,
			"status":     types.RecordStatusEdited,
			"updated_by": userEmail,
		}); err != nil {
			return err
		}

		// Language links only change when the editor wrote \lg tags;
		// a save without them keeps the existing links.
		if len(entry.Lg) > 0 {
			if err := s.recLangRepo.DeleteByRecordID(dbc.Ctx, tx, id); err != nil {
				return err
			}
			for i, name := range entry.Lg {
				lang, err := s.langRepo.FindOrCreateByName(dbc.Ctx, tx, name)
				if err != nil {
					return err
				}
				link := &types.RecordLanguage{RecordID: id, LanguageID: lang.ID, IsPrimary: i == 0}
				if _, err := s.recLangRepo.Create(dbc.Ctx, tx, []*types.RecordLanguage{link}); err != nil {
					return err
				}
			}
		}

		hist := &types.EditHistory{
			RecordID:    id,
			Version:     expectedVersion + 1,
			SessionID:   sessionID,
			UserEmail:   userEmail,
			PrevData:    &oldData,
			CurrentData: newData,
		}
		if _, err := s.historyRepo.Create(dbc.Ctx, tx, hist); err != nil {
			return err
		}
		return s.searchSvc.PopulateSearchEntries(inner, []int{id})
	}

	var err error
	if dbc.Tx != nil {
		err = run(dbc.Tx)
	} else {
		err = s.db.WithContext(dbc.Ctx).Transaction(run)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return sessionID, nil
}

func (s *recordService) SoftDelete(dbc dbctx.Context, id int, userEmail string) error {
	if err := s.recordRepo.SoftDelete(dbc.Ctx, dbc.Tx, id, userEmail); err != nil {
		return err
	}
	return s.searchSvc.PopulateSearchEntries(dbc, []int{id})
}

func (s *recordService) Approve(dbc dbctx.Context, id int, reviewerEmail string) error {
	rec, err := s.recordRepo.GetByID(dbc.Ctx, dbc.Tx, id)
	if err != nil {
		return err
	}
	if rec.Status == types.RecordStatusApproved {
		return nil
	}
	return s.recordRepo.UpdateFields(dbc.Ctx, dbc.Tx, id, map[string]interface{}{
		"status":      types.RecordStatusApproved,
		"reviewed_by": reviewerEmail,
	})
}

func (s *recordService) History(dbc dbctx.Context, id int) ([]*types.EditHistory, error) {
	return s.historyRepo.GetByRecordID(dbc.Ctx, dbc.Tx, id)
}

func (s *recordService) CreateSource(dbc dbctx.Context, name, description string) (*types.Source, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: source name required", pkgerrors.ErrInvalidArgument)
	}
	return s.sourceRepo.Create(dbc.Ctx, dbc.Tx, &types.Source{Name: name, Description: description})
}

func (s *recordService) GetSource(dbc dbctx.Context, id int) (*types.Source, error) {
	return s.sourceRepo.GetByID(dbc.Ctx, dbc.Tx, id)
}

func (s *recordService) ListSources(dbc dbctx.Context) ([]*types.Source, error) {
	return s.sourceRepo.List(dbc.Ctx, dbc.Tx)
}

func (s *recordService) DeleteSource(dbc dbctx.Context, id int) error {
	return s.sourceRepo.Delete(dbc.Ctx, dbc.Tx, id)
}
