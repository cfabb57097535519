package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sneadict/backend/internal/data/db"
	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/handlers"
	"github.com/sneadict/backend/internal/middleware"
	"github.com/sneadict/backend/internal/pkg/logger"
	"github.com/sneadict/backend/internal/platform/envutil"
	"github.com/sneadict/backend/internal/server"
	"github.com/sneadict/backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	jwtSecret := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	listenAddr := envutil.String("LISTEN_ADDR", ":8080")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.RunAll(); err != nil {
		log.Fatal("Postgres migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	activityRepo := repos.NewActivityLogRepo(thePG, log)
	recordRepo := repos.NewRecordRepo(thePG, log)
	sourceRepo := repos.NewSourceRepo(thePG, log)
	langRepo := repos.NewLanguageRepo(thePG, log)
	recLangRepo := repos.NewRecordLanguageRepo(thePG, log)
	queueRepo := repos.NewQueueRepo(thePG, log)
	historyRepo := repos.NewHistoryRepo(thePG, log)
	searchRepo := repos.NewSearchEntryRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	searchService := services.NewSearchService(thePG, log, recordRepo, searchRepo)
	stagingService := services.NewStagingService(thePG, log, queueRepo, activityRepo)
	matchService := services.NewMatchService(thePG, log, queueRepo, recordRepo, sourceRepo)
	applyService := services.NewApplyService(thePG, log, queueRepo, recordRepo, langRepo, recLangRepo, historyRepo, activityRepo, searchService)
	rollbackService := services.NewRollbackService(thePG, log, historyRepo, recordRepo, searchRepo, activityRepo, searchService)
	recordService := services.NewRecordService(thePG, log, recordRepo, sourceRepo, langRepo, recLangRepo, historyRepo, searchService)
	statsService := services.NewStatsService(thePG, log, recordRepo, sourceRepo, historyRepo, searchRepo)
	exportService := services.NewExportService(thePG, log, recordRepo, sourceRepo)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecret, userRepo)
	matchupHandler := handlers.NewMatchupHandler(stagingService, matchService, applyService)
	recordHandler := handlers.NewRecordHandler(recordService, searchService, rollbackService)
	adminHandler := handlers.NewAdminHandler(statsService, exportService)

	var origins []string
	if raw := envutil.String("CORS_ALLOW_ORIGINS", ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		MatchupHandler: matchupHandler,
		RecordHandler:  recordHandler,
		AdminHandler:   adminHandler,
		AllowOrigins:   origins,
	})

	log.Info("Starting server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
