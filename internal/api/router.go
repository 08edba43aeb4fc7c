package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/goalpost/feedsync/internal/api/handler"
	"github.com/goalpost/feedsync/internal/api/middleware"
	"github.com/goalpost/feedsync/internal/logger"
	"github.com/goalpost/feedsync/internal/repository"
	"github.com/goalpost/feedsync/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	db *gorm.DB,
	ingestService *service.IngestService,
	feedRepo *repository.FeedRepository,
	snapshotRepo *repository.SnapshotRepository,
	documentRepo *repository.DocumentRepository,
	runRepo *repository.RunRepository,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler(db)
	feedHandler := handler.NewFeedHandler(feedRepo, snapshotRepo, ingestService)
	documentHandler := handler.NewDocumentHandler(documentRepo)
	ingestHandler := handler.NewIngestHandler(ingestService)
	runHandler := handler.NewRunHandler(runRepo)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Feed sources
		v1.GET("/feeds", feedHandler.ListFeeds)
		v1.POST("/feeds", feedHandler.CreateFeed)
		v1.GET("/feeds/:id", feedHandler.GetFeed)
		v1.PATCH("/feeds/:id", feedHandler.UpdateFeed)
		v1.DELETE("/feeds/:id", feedHandler.DeleteFeed)
		v1.GET("/feeds/:id/snapshots", feedHandler.ListSnapshots)

		// Documents
		v1.GET("/boards/:id/documents", documentHandler.ListByBoard)

		// Ingestion
		v1.POST("/ingest/run", ingestHandler.Run)
		v1.POST("/ingest/feeds/:id", ingestHandler.RunFeed)

		// Run history
		v1.GET("/runs", runHandler.ListRuns)
	}

	return r
}
