package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goalpost/feedsync/internal/archive"
	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/logger"
	"github.com/google/uuid"
)

// FeedStore is the feed source configuration surface the pipeline needs.
type FeedStore interface {
	ListActive(ctx context.Context) ([]domain.FeedSource, error)
	GetByID(ctx context.Context, id string) (*domain.FeedSource, error)
	MarkFetched(ctx context.Context, id string) error
	RecordError(ctx context.Context, id, message string) error
}

// SnapshotStore persists raw article snapshots and answers dedup lookups.
type SnapshotStore interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, snapshot *domain.Snapshot) error
}

// DocumentStore persists display documents.
type DocumentStore interface {
	Insert(ctx context.Context, doc *domain.Document) error
}

// RunStore persists batch run audit records.
type RunStore interface {
	Insert(ctx context.Context, record *domain.RunRecord) error
}

// Fetcher retrieves raw feed bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser turns raw feed bytes into article records.
type Parser interface {
	Parse(ctx context.Context, raw []byte) ([]domain.Article, error)
}

// Config holds ingestion pipeline settings.
type Config struct {
	// Lookback bounds batch ingestion to recently published items.
	// Items older than now-Lookback are parsed but never persisted.
	Lookback time.Duration
	// MaxItems caps how many parsed items a manual single-feed run
	// considers. Zero means no cap.
	MaxItems int
	// MinFetchInterval skips feeds fetched more recently than this on
	// non-manual triggers. Zero disables the check.
	MinFetchInterval time.Duration
	// ArchivePrefix is the object key prefix for raw payload archival.
	ArchivePrefix string
}

// IngestService orchestrates the full pipeline: load sources, fetch and
// parse each feed, dedupe and persist accepted items, update per-source
// health, and write one audit record per batch invocation. Sources are
// processed sequentially so dedup checks within a run observe earlier
// inserts and third-party servers never see request bursts.
type IngestService struct {
	feeds      FeedStore
	snapshots  SnapshotStore
	documents  DocumentStore
	runs       RunStore
	fetcher    Fetcher
	parser     Parser
	normalizer *Normalizer
	archive    archive.Archive
	logger     *logger.Logger
	cfg        Config
}

// NewIngestService creates the ingestion service. arch may be nil when
// raw payload archival is disabled.
func NewIngestService(
	feeds FeedStore,
	snapshots SnapshotStore,
	documents DocumentStore,
	runs RunStore,
	fetcher Fetcher,
	parser Parser,
	normalizer *Normalizer,
	arch archive.Archive,
	log *logger.Logger,
	cfg Config,
) *IngestService {
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "feeds"
	}
	return &IngestService{
		feeds:      feeds,
		snapshots:  snapshots,
		documents:  documents,
		runs:       runs,
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		archive:    arch,
		logger:     log,
		cfg:        cfg,
	}
}

func (s *IngestService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// RunAll processes every active feed source sequentially and writes one
// run record summarizing the outcome. A single source's failure never
// prevents the remaining sources from being attempted; the only error
// returned to the caller is a failure to load the source list itself,
// and even that still produces a run record.
func (s *IngestService) RunAll(ctx context.Context, trigger domain.TriggerType) (*domain.RunRecord, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = s.logger.WithContext(ctx)
	ctx = logger.SetRunID(ctx, runID)

	s.log(ctx).WithField("trigger", trigger).Info("Starting batch ingestion")

	feeds, err := s.feeds.ListActive(ctx)
	if err != nil {
		record := &domain.RunRecord{
			ID:              runID,
			Trigger:         trigger,
			Status:          domain.RunStatusError,
			ErrorMessage:    err.Error(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			CreatedAt:       time.Now(),
		}
		s.record(ctx, record)
		return record, fmt.Errorf("failed to load feed sources: %w", err)
	}

	var cutoff time.Time
	if s.cfg.Lookback > 0 {
		cutoff = start.Add(-s.cfg.Lookback)
	}

	results := make([]domain.FeedResult, 0, len(feeds))
	totalImported := 0
	errCount := 0
	successCount := 0

	for i := range feeds {
		f := &feeds[i]
		fctx := logger.SetFeedID(ctx, f.ID)

		if s.shouldSkip(f, trigger) {
			s.log(fctx).Debug("Skipping recently fetched feed")
			results = append(results, domain.FeedResult{
				FeedID:  f.ID,
				Name:    f.Name,
				Status:  domain.FeedOutcomeSkipped,
				Message: "fetched recently",
			})
			continue
		}

		imported, err := s.processFeed(fctx, f, cutoff, 0)
		if err != nil {
			errCount++
			s.log(fctx).WithError(err).Error("Feed processing failed")
			if rerr := s.feeds.RecordError(fctx, f.ID, err.Error()); rerr != nil {
				s.log(fctx).WithError(rerr).Warn("Failed to record feed error")
			}
			results = append(results, domain.FeedResult{
				FeedID:  f.ID,
				Name:    f.Name,
				Status:  domain.FeedOutcomeError,
				Message: err.Error(),
			})
			continue
		}

		successCount++
		totalImported += imported
		if merr := s.feeds.MarkFetched(fctx, f.ID); merr != nil {
			s.log(fctx).WithError(merr).Warn("Failed to update feed status")
		}
		results = append(results, domain.FeedResult{
			FeedID:   f.ID,
			Name:     f.Name,
			Status:   domain.FeedOutcomeSuccess,
			Imported: imported,
			Message:  fmt.Sprintf("%d new articles imported", imported),
		})
	}

	status := domain.RunStatusSuccess
	errorMessage := ""
	if errCount > 0 {
		errorMessage = fmt.Sprintf("%d feed(s) failed", errCount)
		if successCount > 0 {
			status = domain.RunStatusPartial
		} else {
			status = domain.RunStatusError
		}
	}

	record := &domain.RunRecord{
		ID:              runID,
		Trigger:         trigger,
		Status:          status,
		FeedsProcessed:  len(feeds),
		PostsImported:   totalImported,
		ErrorMessage:    errorMessage,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Detail: domain.RunDetail{
			Results:   results,
			FeedCount: len(feeds),
		},
		CreatedAt: time.Now(),
	}
	s.record(ctx, record)

	s.log(ctx).WithFields(logger.Fields{
		"status":      status,
		"feeds":       len(feeds),
		"imported":    totalImported,
		"duration_ms": record.ExecutionTimeMs,
	}).Info("Batch ingestion completed")

	return record, nil
}

// RunFeed processes one feed source on demand, without the recency filter
// and capped at the configured item limit. The per-source outcome,
// including the underlying failure message, is reported synchronously.
func (s *IngestService) RunFeed(ctx context.Context, feedID string) (*domain.FeedResult, error) {
	f, err := s.feeds.GetByID(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed source: %w", err)
	}
	ctx = s.logger.WithContext(ctx)
	ctx = logger.SetFeedID(ctx, feedID)

	imported, err := s.processFeed(ctx, f, time.Time{}, s.cfg.MaxItems)
	if err != nil {
		s.log(ctx).WithError(err).Error("Feed processing failed")
		if rerr := s.feeds.RecordError(ctx, f.ID, err.Error()); rerr != nil {
			s.log(ctx).WithError(rerr).Warn("Failed to record feed error")
		}
		return &domain.FeedResult{
			FeedID:  f.ID,
			Name:    f.Name,
			Status:  domain.FeedOutcomeError,
			Message: err.Error(),
		}, nil
	}

	if merr := s.feeds.MarkFetched(ctx, f.ID); merr != nil {
		s.log(ctx).WithError(merr).Warn("Failed to update feed status")
	}
	return &domain.FeedResult{
		FeedID:   f.ID,
		Name:     f.Name,
		Status:   domain.FeedOutcomeSuccess,
		Imported: imported,
		Message:  fmt.Sprintf("%d new articles imported", imported),
	}, nil
}

// CheckFeed fetches and parses a feed URL without persisting anything,
// returning the number of items found. Used to validate a feed source
// before it is registered.
func (s *IngestService) CheckFeed(ctx context.Context, url string) (int, error) {
	raw, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	articles, err := s.parser.Parse(ctx, raw)
	if err != nil {
		return 0, err
	}
	return len(articles), nil
}

// processFeed runs fetch, parse, and the per-item loop for one source.
// A fetch or parse failure aborts the source; per-item persistence
// failures only drop that item from the imported count.
func (s *IngestService) processFeed(ctx context.Context, f *domain.FeedSource, cutoff time.Time, maxItems int) (int, error) {
	raw, err := s.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return 0, err
	}

	if s.archive != nil {
		key := fmt.Sprintf("%s/%s/%s.xml", s.cfg.ArchivePrefix, f.ID, time.Now().UTC().Format("20060102T150405Z"))
		if aerr := s.archive.Put(ctx, key, raw); aerr != nil {
			s.log(ctx).WithError(aerr).WithField("key", key).Warn("Failed to archive feed payload")
		}
	}

	articles, err := s.parser.Parse(ctx, raw)
	if err != nil {
		return 0, err
	}

	imported := 0
	for i := range articles {
		if maxItems > 0 && i >= maxItems {
			break
		}
		a := &articles[i]
		if a.Link == "" {
			continue
		}
		if !cutoff.IsZero() && a.PublishedAt.Before(cutoff) {
			continue
		}

		exists, err := s.snapshots.ExistsByLink(ctx, a.Link)
		if err != nil {
			s.log(ctx).WithError(err).WithField("link", a.Link).Warn("Dedup lookup failed")
			continue
		}
		if exists {
			continue
		}

		snap := s.normalizer.Snapshot(a, f.ID)
		if err := s.snapshots.Insert(ctx, snap); err != nil {
			s.log(ctx).WithError(err).WithField("link", a.Link).Warn("Failed to persist snapshot")
			continue
		}

		doc := s.normalizer.Document(a, f)
		if err := s.documents.Insert(ctx, doc); err != nil {
			// The snapshot stays behind without a document, and because
			// dedup is keyed on the snapshot a re-run will not retry it.
			s.log(ctx).WithError(err).WithField("link", a.Link).Warn("Failed to persist document")
			continue
		}

		imported++
	}

	s.log(ctx).WithFields(logger.Fields{
		"seen":     len(articles),
		"imported": imported,
	}).Info("Feed processed")

	return imported, nil
}

func (s *IngestService) shouldSkip(f *domain.FeedSource, trigger domain.TriggerType) bool {
	if trigger == domain.TriggerManual || s.cfg.MinFetchInterval <= 0 {
		return false
	}
	if f.LastFetchedAt == nil {
		return false
	}
	return time.Since(*f.LastFetchedAt) < s.cfg.MinFetchInterval
}

// record writes the audit row. Observability must never fail the run, so
// an insert error is logged and swallowed.
func (s *IngestService) record(ctx context.Context, record *domain.RunRecord) {
	if err := s.runs.Insert(ctx, record); err != nil {
		s.log(ctx).WithError(err).Error("Failed to write run record")
	}
}
