package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goalpost/feedsync/internal/api"
	"github.com/goalpost/feedsync/internal/api/middleware"
	"github.com/goalpost/feedsync/internal/archive"
	"github.com/goalpost/feedsync/internal/config"
	"github.com/goalpost/feedsync/internal/feed"
	"github.com/goalpost/feedsync/internal/images"
	"github.com/goalpost/feedsync/internal/logger"
	"github.com/goalpost/feedsync/internal/repository"
	"github.com/goalpost/feedsync/internal/service"
)

func main() {
	appLogger := logger.New(logger.FromEnv())
	logger.SetDefaultLogger(appLogger)

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	feedRepo := repository.NewFeedRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	runRepo := repository.NewRunRepository(db)

	fetcher := feed.NewFetcher(&feed.FetcherConfig{
		Timeout:   cfg.Fetch.FeedTimeout,
		UserAgent: cfg.Fetch.FeedUserAgent,
	})
	resolver := images.NewResolver(&images.Config{
		Timeout:   cfg.Fetch.PageTimeout,
		UserAgent: cfg.Fetch.PageUserAgent,
	}, appLogger)
	parser := feed.NewParser(resolver)
	normalizer := service.NewNormalizer(cfg.Ingest.SummaryLength)

	var arch archive.Archive
	if cfg.Archive.Enabled {
		s3Archive, err := archive.NewS3Archive(&archive.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive storage")
		}
		if err := s3Archive.EnsureBucket(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
		}
		arch = s3Archive
	}

	ingestService := service.NewIngestService(
		feedRepo,
		snapshotRepo,
		documentRepo,
		runRepo,
		fetcher,
		parser,
		normalizer,
		arch,
		appLogger,
		service.Config{
			Lookback:         time.Duration(cfg.Ingest.LookbackDays) * 24 * time.Hour,
			MaxItems:         cfg.Ingest.MaxItems,
			MinFetchInterval: cfg.Ingest.MinFetchInterval,
			ArchivePrefix:    cfg.Archive.KeyPrefix,
		},
	)

	router := api.SetupRouter(
		db,
		ingestService,
		feedRepo,
		snapshotRepo,
		documentRepo,
		runRepo,
		appLogger,
		cfg.Server.Mode,
		middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
