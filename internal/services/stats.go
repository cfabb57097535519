package services

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// SourceStats is the per-source slice of the overview.
type SourceStats struct {
	SourceID   int    `json:"source_id"`
	SourceName string `json:"source_name"`
	Total      int64  `json:"total"`
	Draft      int64  `json:"draft"`
	Edited     int64  `json:"edited"`
	Approved   int64  `json:"approved"`
}

// Overview aggregates archive-wide counts for the dashboard.
type Overview struct {
	Sources       []*SourceStats `json:"sources"`
	TotalRecords  int64          `json:"total_records"`
	QueueDepth    int64          `json:"queue_depth"`
	HistoryRows   int64          `json:"history_rows"`
	SearchEntries int64          `json:"search_entries"`
}

type StatsService interface {
	Overview(dbc dbctx.Context) (*Overview, error)
}

type statsService struct {
	db          *gorm.DB
	log         *logger.Logger
	recordRepo  repos.RecordRepo
	sourceRepo  repos.SourceRepo
	historyRepo repos.HistoryRepo
	searchRepo  repos.SearchEntryRepo
}

func NewStatsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recordRepo repos.RecordRepo,
	sourceRepo repos.SourceRepo,
	historyRepo repos.HistoryRepo,
	searchRepo repos.SearchEntryRepo,
) StatsService {
	return &statsService{
		db:          db,
		log:         baseLog.With("service", "StatsService"),
		recordRepo:  recordRepo,
		sourceRepo:  sourceRepo,
		historyRepo: historyRepo,
		searchRepo:  searchRepo,
	}
}

// Overview fans the independent aggregates out over the pooled handle.
// Inside a transaction the counts run sequentially instead, since a
// *gorm.DB transaction is not safe for concurrent use.
func (s *statsService) Overview(dbc dbctx.Context) (*Overview, error) {
	sources, err := s.sourceRepo.List(dbc.Ctx, dbc.Tx)
	if err != nil {
		return nil, err
	}

	out := &Overview{Sources: make([]*SourceStats, len(sources))}
	tasks := make([]func(ctx context.Context) error, 0, len(sources)+3)

	for i, src := range sources {
		i, src := i, src
		tasks = append(tasks, func(ctx context.Context) error {
			st := &SourceStats{SourceID: src.ID, SourceName: src.Name}
			var err error
			if st.Total, err = s.recordRepo.CountBySourceID(ctx, dbc.Tx, src.ID); err != nil {
				return err
			}
			if st.Draft, err = s.recordRepo.CountBySourceAndStatus(ctx, dbc.Tx, src.ID, types.RecordStatusDraft); err != nil {
				return err
			}
			if st.Edited, err = s.recordRepo.CountBySourceAndStatus(ctx, dbc.Tx, src.ID, types.RecordStatusEdited); err != nil {
				return err
			}
			if st.Approved, err = s.recordRepo.CountBySourceAndStatus(ctx, dbc.Tx, src.ID, types.RecordStatusApproved); err != nil {
				return err
			}
			out.Sources[i] = st
			return nil
		})
	}

	tasks = append(tasks,
		func(ctx context.Context) error {
			handle := dbc.Tx
			if handle == nil {
				handle = s.db
			}
			var n int64
			err := handle.WithContext(ctx).Model(&types.MatchupQueueRow{}).Count(&n).Error
			out.QueueDepth = n
			return err
		},
		func(ctx context.Context) error {
			n, err := s.historyRepo.CountAll(ctx, dbc.Tx)
			out.HistoryRows = n
			return err
		},
		func(ctx context.Context) error {
			n, err := s.searchRepo.CountAll(ctx, dbc.Tx)
			out.SearchEntries = n
			return err
		},
	)

	if dbc.Tx != nil {
		for _, task := range tasks {
			if err := task(dbc.Ctx); err != nil {
				return nil, err
			}
		}
	} else {
		g, ctx := errgroup.WithContext(dbc.Ctx)
		g.SetLimit(8)
		for _, task := range tasks {
			task := task
			g.Go(func() error { return task(ctx) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	for _, st := range out.Sources {
		out.TotalRecords += st.Total
	}
	return out, nil
}
