// Command reindex rebuilds the derived search index from scratch. Run it
// after bulk data fixes or when the index derivation rules change.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sneadict/backend/internal/data/db"
	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/pkg/logger"
	"github.com/sneadict/backend/internal/platform/envutil"
	"github.com/sneadict/backend/internal/services"
)

const batchSize = 500

func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "production"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()

	recordRepo := repos.NewRecordRepo(thePG, log)
	searchRepo := repos.NewSearchEntryRepo(thePG, log)
	searchService := services.NewSearchService(thePG, log, recordRepo, searchRepo)

	ctx := context.Background()
	ids, err := recordRepo.ListLiveIDs(ctx, nil)
	if err != nil {
		log.Fatal("List live records failed", "error", err)
	}
	log.Info("Reindexing records", "count", len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := searchService.PopulateSearchEntries(dbctx.Context{Ctx: ctx}, ids[start:end]); err != nil {
			log.Fatal("Reindex batch failed", "offset", start, "error", err)
		}
		log.Info("Reindexed", "done", end, "total", len(ids))
	}
	log.Info("Reindex complete")
}
