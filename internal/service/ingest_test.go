package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/feed"
	"github.com/goalpost/feedsync/internal/images"
)

type stubFeedStore struct {
	feeds    []domain.FeedSource
	listErr  error
	marked   []string
	recorded map[string]string
}

func newStubFeedStore(feeds ...domain.FeedSource) *stubFeedStore {
	return &stubFeedStore{feeds: feeds, recorded: map[string]string{}}
}

func (s *stubFeedStore) ListActive(ctx context.Context) ([]domain.FeedSource, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.feeds, nil
}

func (s *stubFeedStore) GetByID(ctx context.Context, id string) (*domain.FeedSource, error) {
	for i := range s.feeds {
		if s.feeds[i].ID == id {
			return &s.feeds[i], nil
		}
	}
	return nil, errors.New("feed not found")
}

func (s *stubFeedStore) MarkFetched(ctx context.Context, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubFeedStore) RecordError(ctx context.Context, id, message string) error {
	s.recorded[id] = message
	return nil
}

type stubSnapshotStore struct {
	links     map[string]bool
	inserted  []*domain.Snapshot
	insertErr error
	existsErr map[string]error
}

func newStubSnapshotStore() *stubSnapshotStore {
	return &stubSnapshotStore{links: map[string]bool{}}
}

func (s *stubSnapshotStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	if err := s.existsErr[link]; err != nil {
		return false, err
	}
	return s.links[link], nil
}

func (s *stubSnapshotStore) Insert(ctx context.Context, snapshot *domain.Snapshot) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.links[snapshot.Link] = true
	s.inserted = append(s.inserted, snapshot)
	return nil
}

type stubDocumentStore struct {
	inserted  []*domain.Document
	insertErr error
}

func (s *stubDocumentStore) Insert(ctx context.Context, doc *domain.Document) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, doc)
	return nil
}

type stubRunStore struct {
	records []*domain.RunRecord
}

func (s *stubRunStore) Insert(ctx context.Context, record *domain.RunRecord) error {
	s.records = append(s.records, record)
	return nil
}

type stubFetcher struct {
	payloads map[string]string
	failures map[string]error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	return []byte(f.payloads[url]), nil
}

func rssWithItems(items ...string) string {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		b.WriteString(it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(
		"<item><title>%s</title><link>%s</link><description>%s body</description><pubDate>%s</pubDate></item>",
		title, link, title, published.Format(time.RFC1123Z))
}

type fixture struct {
	feeds     *stubFeedStore
	snapshots *stubSnapshotStore
	documents *stubDocumentStore
	runs      *stubRunStore
	service   *IngestService
}

func newFixture(t *testing.T, feeds *stubFeedStore, fetcher *stubFetcher, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		feeds:     feeds,
		snapshots: newStubSnapshotStore(),
		documents: &stubDocumentStore{},
		runs:      &stubRunStore{},
	}
	f.service = NewIngestService(
		f.feeds,
		f.snapshots,
		f.documents,
		f.runs,
		fetcher,
		feed.NewParser(nil),
		NewNormalizer(0),
		nil,
		nil,
		cfg,
	)
	return f
}

func TestRunAllImportsRecentItems(t *testing.T) {
	recent := time.Now().Add(-48 * time.Hour)
	old := time.Now().Add(-10 * 24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"https://club.example.com/feed": rssWithItems(
			rssItem("Match Report", "https://club.example.com/match-report", recent),
			rssItem("Old News", "https://club.example.com/old-news", old),
		),
	}}
	feeds := newStubFeedStore(domain.FeedSource{
		ID: "f1", Name: "Club News", URL: "https://club.example.com/feed", BoardID: "b1", IsActive: true,
	})
	fx := newFixture(t, feeds, fetcher, Config{Lookback: 7 * 24 * time.Hour})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}

	if record.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q, want success", record.Status)
	}
	if record.PostsImported != 1 {
		t.Errorf("imported = %d, want 1 (old item filtered)", record.PostsImported)
	}
	if record.FeedsProcessed != 1 {
		t.Errorf("feeds processed = %d", record.FeedsProcessed)
	}
	if len(fx.snapshots.inserted) != 1 || fx.snapshots.inserted[0].Link != "https://club.example.com/match-report" {
		t.Errorf("snapshots = %+v", fx.snapshots.inserted)
	}
	if len(fx.documents.inserted) != 1 || fx.documents.inserted[0].Title != "Match Report" {
		t.Errorf("documents = %+v", fx.documents.inserted)
	}
	if fx.documents.inserted[0].BoardID != "b1" {
		t.Errorf("board = %q", fx.documents.inserted[0].BoardID)
	}
	if len(fx.feeds.marked) != 1 || fx.feeds.marked[0] != "f1" {
		t.Errorf("marked = %v", fx.feeds.marked)
	}
	if len(fx.runs.records) != 1 {
		t.Fatalf("run records = %d, want 1", len(fx.runs.records))
	}
	detail := fx.runs.records[0].Detail
	if detail.FeedCount != 1 || len(detail.Results) != 1 || detail.Results[0].Status != domain.FeedOutcomeSuccess {
		t.Errorf("detail = %+v", detail)
	}
}

func TestRunAllIsIdempotent(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(rssItem("One", "https://example.com/one", recent)),
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher,
		Config{Lookback: 7 * 24 * time.Hour})

	first, err := fx.service.RunAll(context.Background(), domain.TriggerManual)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := fx.service.RunAll(context.Background(), domain.TriggerManual)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.PostsImported != 1 {
		t.Errorf("first imported = %d, want 1", first.PostsImported)
	}
	if second.PostsImported != 0 {
		t.Errorf("second imported = %d, want 0 (deduplicated)", second.PostsImported)
	}
	if second.Status != domain.RunStatusSuccess {
		t.Errorf("second status = %q, duplicates are not failures", second.Status)
	}
	if len(fx.snapshots.inserted) != 1 {
		t.Errorf("snapshots = %d, want 1", len(fx.snapshots.inserted))
	}
}

func TestRunAllIsolatesFeedFailures(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{
		payloads: map[string]string{
			"a": rssWithItems(rssItem("First", "https://example.com/first", recent)),
			"c": rssWithItems(rssItem("Third", "https://example.com/third", recent)),
		},
		failures: map[string]error{
			"b": &feed.TransportError{Status: 503, Reason: "503 Service Unavailable"},
		},
	}
	feeds := newStubFeedStore(
		domain.FeedSource{ID: "feed-a", Name: "First Source", URL: "a"},
		domain.FeedSource{ID: "feed-b", Name: "Broken Source", URL: "b"},
		domain.FeedSource{ID: "feed-c", Name: "Third Source", URL: "c"},
	)
	fx := newFixture(t, feeds, fetcher, Config{Lookback: 7 * 24 * time.Hour})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}

	if record.Status != domain.RunStatusPartial {
		t.Errorf("status = %q, want partial", record.Status)
	}
	if record.PostsImported != 2 {
		t.Errorf("imported = %d, want 2 from the working feeds", record.PostsImported)
	}
	if record.ErrorMessage != "1 feed(s) failed" {
		t.Errorf("error message = %q", record.ErrorMessage)
	}
	if _, ok := fx.feeds.recorded["feed-b"]; !ok {
		t.Error("failure must be recorded against the broken feed")
	}
	if len(fx.feeds.marked) != 2 {
		t.Errorf("marked = %v, want both working feeds", fx.feeds.marked)
	}
	if len(record.Detail.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(record.Detail.Results))
	}
	wantStatuses := []string{domain.FeedOutcomeSuccess, domain.FeedOutcomeError, domain.FeedOutcomeSuccess}
	for i, want := range wantStatuses {
		if record.Detail.Results[i].Status != want {
			t.Errorf("result %d = %+v, want status %q", i, record.Detail.Results[i], want)
		}
	}
}

func TestRunAllAllFeedsFailing(t *testing.T) {
	fetcher := &stubFetcher{failures: map[string]error{
		"a": errors.New("dial tcp: connection refused"),
		"b": &feed.TransportError{Status: 500, Reason: "boom"},
	}}
	feeds := newStubFeedStore(
		domain.FeedSource{ID: "f1", URL: "a"},
		domain.FeedSource{ID: "f2", URL: "b"},
	)
	fx := newFixture(t, feeds, fetcher, Config{})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}
	if record.Status != domain.RunStatusError {
		t.Errorf("status = %q, want error when every feed fails", record.Status)
	}
	if record.ErrorMessage != "2 feed(s) failed" {
		t.Errorf("error message = %q", record.ErrorMessage)
	}
}

func TestRunAllListFailureStillWritesRecord(t *testing.T) {
	feeds := newStubFeedStore()
	feeds.listErr = errors.New("database locked")
	fx := newFixture(t, feeds, &stubFetcher{}, Config{})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err == nil {
		t.Fatal("expected error when source list cannot be loaded")
	}
	if record == nil || record.Status != domain.RunStatusError {
		t.Fatalf("record = %+v", record)
	}
	if len(fx.runs.records) != 1 {
		t.Errorf("run records = %d, want 1 even on list failure", len(fx.runs.records))
	}
}

func TestRunAllSkipsRecentlyFetched(t *testing.T) {
	justNow := time.Now().Add(-5 * time.Minute)
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(rssItem("One", "https://example.com/one", recent)),
	}}
	feeds := newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u", LastFetchedAt: &justNow})
	fx := newFixture(t, feeds, fetcher, Config{MinFetchInterval: time.Hour})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}
	if record.PostsImported != 0 {
		t.Errorf("imported = %d, want 0 for skipped feed", record.PostsImported)
	}
	if record.Detail.Results[0].Status != domain.FeedOutcomeSkipped {
		t.Errorf("result = %+v, want skipped", record.Detail.Results[0])
	}

	// A manual trigger ignores the interval.
	record, err = fx.service.RunAll(context.Background(), domain.TriggerManual)
	if err != nil {
		t.Fatalf("manual RunAll returned error: %v", err)
	}
	if record.PostsImported != 1 {
		t.Errorf("manual imported = %d, want 1", record.PostsImported)
	}
}

func TestRunAllDocumentFailureLeavesSnapshot(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(rssItem("One", "https://example.com/one", recent)),
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher, Config{})
	fx.documents.insertErr = errors.New("constraint violation")

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}

	if record.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q, item-level write failures do not fail the feed", record.Status)
	}
	if record.PostsImported != 0 {
		t.Errorf("imported = %d, want 0 when the document write fails", record.PostsImported)
	}
	if len(fx.snapshots.inserted) != 1 {
		t.Errorf("snapshots = %d, the snapshot write is not rolled back", len(fx.snapshots.inserted))
	}
}

func TestRunAllSnapshotFailureSkipsItem(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(rssItem("One", "https://example.com/one", recent)),
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher, Config{})
	fx.snapshots.insertErr = errors.New("disk full")

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}

	if record.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q, item-level write failures do not fail the feed", record.Status)
	}
	if record.PostsImported != 0 {
		t.Errorf("imported = %d, want 0 when the snapshot write fails", record.PostsImported)
	}
	if len(fx.snapshots.inserted) != 0 {
		t.Errorf("snapshots = %d, want 0", len(fx.snapshots.inserted))
	}
	if len(fx.documents.inserted) != 0 {
		t.Errorf("documents = %d, no document may follow a failed snapshot", len(fx.documents.inserted))
	}
	if len(fx.feeds.marked) != 1 || fx.feeds.marked[0] != "f1" {
		t.Errorf("marked = %v, the feed itself was reachable", fx.feeds.marked)
	}
}

func TestRunAllDedupLookupFailureSkipsItem(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(
			rssItem("Flaky", "https://example.com/flaky", recent),
			rssItem("Stable", "https://example.com/stable", recent),
		),
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher, Config{})
	fx.snapshots.existsErr = map[string]error{
		"https://example.com/flaky": errors.New("database locked"),
	}

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}

	if record.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q, a dedup lookup failure does not fail the feed", record.Status)
	}
	if record.PostsImported != 1 {
		t.Errorf("imported = %d, the loop must continue past the failed item", record.PostsImported)
	}
	if len(fx.snapshots.inserted) != 1 || fx.snapshots.inserted[0].Link != "https://example.com/stable" {
		t.Errorf("snapshots = %+v, only the item with a working lookup", fx.snapshots.inserted)
	}
	if len(fx.feeds.marked) != 1 {
		t.Errorf("marked = %v", fx.feeds.marked)
	}
}

func TestRunFeedCapsItems(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	items := make([]string, 12)
	for i := range items {
		items[i] = rssItem(fmt.Sprintf("Item %d", i), fmt.Sprintf("https://example.com/%d", i), recent)
	}
	fetcher := &stubFetcher{payloads: map[string]string{"u": rssWithItems(items...)}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", Name: "Capped", URL: "u"}), fetcher,
		Config{MaxItems: 10, Lookback: 7 * 24 * time.Hour})

	result, err := fx.service.RunFeed(context.Background(), "f1")
	if err != nil {
		t.Fatalf("RunFeed returned error: %v", err)
	}
	if result.Status != domain.FeedOutcomeSuccess {
		t.Errorf("status = %q", result.Status)
	}
	if result.Imported != 10 {
		t.Errorf("imported = %d, want 10 (capped)", result.Imported)
	}
	if len(fx.feeds.marked) != 1 {
		t.Errorf("marked = %v", fx.feeds.marked)
	}
}

func TestRunFeedIgnoresLookback(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	fetcher := &stubFetcher{payloads: map[string]string{
		"u": rssWithItems(rssItem("Archive", "https://example.com/archive", old)),
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher,
		Config{Lookback: 7 * 24 * time.Hour})

	result, err := fx.service.RunFeed(context.Background(), "f1")
	if err != nil {
		t.Fatalf("RunFeed returned error: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, a single-feed run has no recency filter", result.Imported)
	}
}

func TestRunFeedReportsFailure(t *testing.T) {
	fetcher := &stubFetcher{failures: map[string]error{
		"u": &feed.TransportError{Status: 404, Reason: "404 Not Found"},
	}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", Name: "Gone", URL: "u"}), fetcher, Config{})

	result, err := fx.service.RunFeed(context.Background(), "f1")
	if err != nil {
		t.Fatalf("RunFeed returned error: %v", err)
	}
	if result.Status != domain.FeedOutcomeError {
		t.Errorf("status = %q, want error", result.Status)
	}
	if _, ok := fx.feeds.recorded["f1"]; !ok {
		t.Error("failure must be recorded against the feed")
	}

	if _, err := fx.service.RunFeed(context.Background(), "missing"); err == nil {
		t.Error("unknown feed ID must return an error")
	}
}

func TestCheckFeed(t *testing.T) {
	recent := time.Now()
	fetcher := &stubFetcher{
		payloads: map[string]string{
			"ok":  rssWithItems(rssItem("A", "https://example.com/a", recent), rssItem("B", "https://example.com/b", recent)),
			"bad": "<html>not a feed</html>",
		},
		failures: map[string]error{
			"down": &feed.TransportError{Reason: "connection refused"},
		},
	}
	fx := newFixture(t, newStubFeedStore(), fetcher, Config{})

	n, err := fx.service.CheckFeed(context.Background(), "ok")
	if err != nil {
		t.Fatalf("CheckFeed returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("items = %d, want 2", n)
	}

	if _, err := fx.service.CheckFeed(context.Background(), "bad"); !errors.Is(err, feed.ErrUnrecognizedFeed) {
		t.Errorf("err = %v, want ErrUnrecognizedFeed", err)
	}
	if _, err := fx.service.CheckFeed(context.Background(), "down"); err == nil {
		t.Error("transport failure must surface")
	}
}

func TestEndToEndMatchReport(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	payload := rssWithItems(fmt.Sprintf(
		`<item><title>Match Report</title><link>https://news.example/1</link>`+
			`<description><![CDATA[<img src="https://cdn.example/a.jpg">Summary text]]></description>`+
			`<pubDate>%s</pubDate></item>`, recent.Format(time.RFC1123Z)))
	fetcher := &stubFetcher{payloads: map[string]string{"https://news.example/feed": payload}}

	feeds := newStubFeedStore(domain.FeedSource{
		ID: "f1", Name: "News", URL: "https://news.example/feed", BoardID: "b1",
	})
	snapshots := newStubSnapshotStore()
	documents := &stubDocumentStore{}
	runs := &stubRunStore{}
	svc := NewIngestService(
		feeds, snapshots, documents, runs,
		fetcher,
		feed.NewParser(images.NewResolver(&images.Config{}, nil)),
		NewNormalizer(0),
		nil, nil,
		Config{Lookback: 7 * 24 * time.Hour},
	)

	first, err := svc.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.RunAll(context.Background(), domain.TriggerManual)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.PostsImported != 1 || second.PostsImported != 0 {
		t.Errorf("imported = %d then %d, want 1 then 0", first.PostsImported, second.PostsImported)
	}
	if len(snapshots.inserted) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snapshots.inserted))
	}
	if snapshots.inserted[0].ImageURL != "https://cdn.example/a.jpg" {
		t.Errorf("snapshot image = %q", snapshots.inserted[0].ImageURL)
	}
	if len(documents.inserted) != 1 {
		t.Fatalf("documents = %d, want 1", len(documents.inserted))
	}
	doc := documents.inserted[0]
	if doc.Blocks[0].Type != domain.BlockTypeImage || doc.Blocks[0].Src != "https://cdn.example/a.jpg" {
		t.Errorf("first block = %+v, want the description image", doc.Blocks[0])
	}
	if doc.Blocks[1].Text != "Summary text" {
		t.Errorf("text block = %q", doc.Blocks[1].Text)
	}
}

func TestRunAllSkipsItemsWithoutLink(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	payload := rssWithItems(
		"<item><title>No Link</title><description>d</description></item>",
		rssItem("Linked", "https://example.com/linked", recent),
	)
	fetcher := &stubFetcher{payloads: map[string]string{"u": payload}}
	fx := newFixture(t, newStubFeedStore(domain.FeedSource{ID: "f1", URL: "u"}), fetcher,
		Config{Lookback: 7 * 24 * time.Hour})

	record, err := fx.service.RunAll(context.Background(), domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}
	if record.PostsImported != 1 {
		t.Errorf("imported = %d, want 1 (link-less item skipped)", record.PostsImported)
	}
}
