package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goalpost/feedsync/internal/archive"
	"github.com/goalpost/feedsync/internal/config"
	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/feed"
	"github.com/goalpost/feedsync/internal/images"
	"github.com/goalpost/feedsync/internal/logger"
	"github.com/goalpost/feedsync/internal/repository"
	"github.com/goalpost/feedsync/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "feedsync-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	trigger := flag.String("trigger", "scheduled", "Trigger type to record (manual, scheduled, hook)")
	feedID := flag.String("feed", "", "Process only this feed source ID")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	triggerType := domain.TriggerType(*trigger)
	if !triggerType.Valid() {
		appLogger.WithField("trigger", *trigger).Fatal("Unknown trigger type")
	}

	cfg, err := config.Load(*configPath)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		if err := s3Archive.EnsureBucket(ctx); err != nil {
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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if *feedID != "" {
		result, err := ingestService.RunFeed(ctx, *feedID)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to process feed")
		}
		appLogger.WithFields(logger.Fields{
			"feed":     result.FeedID,
			"status":   result.Status,
			"imported": result.Imported,
			"message":  result.Message,
		}).Info("Feed run completed")
		return
	}

	record, err := ingestService.RunAll(ctx, triggerType)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to run ingestion")
	}
	appLogger.WithFields(logger.Fields{
		"run":         record.ID,
		"status":      record.Status,
		"feeds":       record.FeedsProcessed,
		"imported":    record.PostsImported,
		"duration_ms": record.ExecutionTimeMs,
	}).Info("Ingestion completed")
}
