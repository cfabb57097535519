package services_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/data/repos/testutil"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/services"
)

// env wires every service over a single rolled-back transaction so the
// scenario tests compose services the way the handlers do.
type env struct {
	tx  *gorm.DB
	dbc dbctx.Context

	staging  services.StagingService
	match    services.MatchService
	apply    services.ApplyService
	rollback services.RollbackService
	records  services.RecordService
	search   services.SearchService
	export   services.ExportService
	stats    services.StatsService

	recordRepo  repos.RecordRepo
	queueRepo   repos.QueueRepo
	historyRepo repos.HistoryRepo
	searchRepo  repos.SearchEntryRepo
	recLangRepo repos.RecordLanguageRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	recordRepo := repos.NewRecordRepo(gdb, log)
	sourceRepo := repos.NewSourceRepo(gdb, log)
	langRepo := repos.NewLanguageRepo(gdb, log)
	recLangRepo := repos.NewRecordLanguageRepo(gdb, log)
	queueRepo := repos.NewQueueRepo(gdb, log)
	historyRepo := repos.NewHistoryRepo(gdb, log)
	searchRepo := repos.NewSearchEntryRepo(gdb, log)
	activityRepo := repos.NewActivityLogRepo(gdb, log)

	searchSvc := services.NewSearchService(gdb, log, recordRepo, searchRepo)

	return &env{
		tx:  tx,
		dbc: dbctx.Context{Ctx: context.Background(), Tx: tx},

		staging:  services.NewStagingService(gdb, log, queueRepo, activityRepo),
		match:    services.NewMatchService(gdb, log, queueRepo, recordRepo, sourceRepo),
		apply:    services.NewApplyService(gdb, log, queueRepo, recordRepo, langRepo, recLangRepo, historyRepo, activityRepo, searchSvc),
		rollback: services.NewRollbackService(gdb, log, historyRepo, recordRepo, searchRepo, activityRepo, searchSvc),
		records:  services.NewRecordService(gdb, log, recordRepo, sourceRepo, langRepo, recLangRepo, historyRepo, searchSvc),
		search:   searchSvc,
		export:   services.NewExportService(gdb, log, recordRepo, sourceRepo),
		stats:    services.NewStatsService(gdb, log, recordRepo, sourceRepo, historyRepo, searchRepo),

		recordRepo:  recordRepo,
		queueRepo:   queueRepo,
		historyRepo: historyRepo,
		searchRepo:  searchRepo,
		recLangRepo: recLangRepo,
	}
}
