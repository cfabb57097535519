package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sneadict/backend/internal/handlers"
	"github.com/sneadict/backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	MatchupHandler *handlers.MatchupHandler
	RecordHandler  *handlers.RecordHandler
	AdminHandler   *handlers.AdminHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Matchup queue
	matchup := api.Group("/matchup")
	matchup.POST("/stage", cfg.MatchupHandler.Stage)
	matchup.GET("/batches", cfg.MatchupHandler.ListBatches)
	matchup.GET("/batches/:batchID/mdf", cfg.MatchupHandler.BatchMDF)
	matchup.POST("/batches/:batchID/suggest", cfg.MatchupHandler.Suggest)
	matchup.POST("/batches/:batchID/rematch", cfg.MatchupHandler.Rematch)
	matchup.POST("/batches/:batchID/auto-remove", cfg.MatchupHandler.AutoRemoveDuplicates)
	matchup.GET("/batches/:batchID/flags/homonyms", cfg.MatchupHandler.FlagHmMismatches)
	matchup.GET("/batches/:batchID/flags/distance", cfg.MatchupHandler.FlagHeadwordDistance)
	matchup.POST("/batches/:batchID/discard-all", cfg.MatchupHandler.DiscardAll)
	matchup.POST("/batches/:batchID/discard-marked", cfg.MatchupHandler.DiscardMarked)
	matchup.POST("/batches/:batchID/approve-new-source", cfg.MatchupHandler.ApproveAllNewSource)
	matchup.POST("/batches/:batchID/approve-matches", cfg.MatchupHandler.ApproveAllByRecordMatch)
	matchup.POST("/batches/:batchID/approve-nonmatches", cfg.MatchupHandler.ApproveNonMatchesAsNew)
	matchup.POST("/rows/:queueID/confirm", cfg.MatchupHandler.ConfirmMatch)
	matchup.POST("/rows/:queueID/homonym", cfg.MatchupHandler.MarkAsHomonym)
	matchup.POST("/rows/:queueID/ignore", cfg.MatchupHandler.MarkAsIgnored)
	matchup.POST("/rows/:queueID/discard", cfg.MatchupHandler.MarkAsDiscard)
	matchup.POST("/rows/:queueID/apply", cfg.MatchupHandler.ApplyRow)

	// Records and sources
	api.GET("/records/:recordID", cfg.RecordHandler.Get)
	api.PUT("/records/:recordID/mdf", cfg.RecordHandler.SaveMDF)
	api.DELETE("/records/:recordID", cfg.RecordHandler.Delete)
	api.POST("/records/:recordID/approve", cfg.RecordHandler.Approve)
	api.GET("/records/:recordID/history", cfg.RecordHandler.History)
	api.GET("/search", cfg.RecordHandler.Search)
	api.GET("/sources", cfg.RecordHandler.ListSources)
	api.POST("/sources", cfg.RecordHandler.CreateSource)
	api.DELETE("/sources/:sourceID", cfg.RecordHandler.DeleteSource)
	api.GET("/sources/:sourceID/records", cfg.RecordHandler.ListBySource)

	// Sessions
	api.GET("/sessions", cfg.RecordHandler.ListSessions)
	api.POST("/sessions/:sessionID/rollback", cfg.RecordHandler.RollbackSession)

	// Admin
	admin := api.Group("/admin", cfg.AuthMiddleware.RequireRole("admin", "editor"))
	admin.GET("/stats", cfg.AdminHandler.Overview)
	admin.GET("/export/sources/:sourceID", cfg.AdminHandler.ExportSource)
	admin.GET("/export/bundle", cfg.AdminHandler.ExportBundle)

	return router
}
