package service

import (
	"time"

	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/feed"
	"github.com/google/uuid"
)

// Ellipsis is appended when the document text block is truncated.
const Ellipsis = "..."

// DefaultSummaryLength is the character budget for the document text block.
const DefaultSummaryLength = 300

// Normalizer transforms an accepted article into its two persisted forms:
// the raw snapshot and the block-structured display document. The block
// order and truncation policy are a rendering contract; every ingestion
// call site must produce identical output for the same article.
type Normalizer struct {
	summaryLength int
}

// NewNormalizer creates a normalizer with the given text budget.
// A non-positive budget selects DefaultSummaryLength.
func NewNormalizer(summaryLength int) *Normalizer {
	if summaryLength <= 0 {
		summaryLength = DefaultSummaryLength
	}
	return &Normalizer{summaryLength: summaryLength}
}

// Snapshot builds the append-only raw record for one article.
func (n *Normalizer) Snapshot(a *domain.Article, feedID string) *domain.Snapshot {
	return &domain.Snapshot{
		ID:          uuid.New().String(),
		FeedID:      feedID,
		Title:       a.Title,
		Description: feed.CleanText(a.Description),
		Link:        a.Link,
		PublishedAt: a.PublishedAt,
		Author:      a.Author,
		ImageURL:    a.ImageURL,
		CreatedAt:   time.Now(),
	}
}

// Document builds the renderable form, in fixed block order: an image
// block when an image was resolved, the truncated text block, and a
// trailing source-link block pointing at the original article.
func (n *Normalizer) Document(a *domain.Article, src *domain.FeedSource) *domain.Document {
	blocks := make(domain.BlockList, 0, 3)

	if a.ImageURL != "" {
		blocks = append(blocks, domain.Block{
			Type: domain.BlockTypeImage,
			Src:  a.ImageURL,
			Alt:  a.Title,
		})
	}

	blocks = append(blocks, domain.Block{
		Type: domain.BlockTypeParagraph,
		Text: n.bodyText(a),
	})

	blocks = append(blocks, domain.Block{
		Type: domain.BlockTypeSourceLink,
		Text: "View original",
		Href: a.Link,
	})

	now := time.Now()
	return &domain.Document{
		ID:          uuid.New().String(),
		BoardID:     src.BoardID,
		Title:       a.Title,
		Blocks:      blocks,
		SourceURL:   a.Link,
		Category:    "news",
		PublishedAt: a.PublishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// bodyText returns the truncated cleaned description, or the full cleaned
// content when the item carried no description.
func (n *Normalizer) bodyText(a *domain.Article) string {
	cleaned := feed.CleanText(a.Description)
	if cleaned == "" {
		return feed.CleanText(a.Content)
	}
	return truncate(cleaned, n.summaryLength)
}

// truncate cuts s to limit characters, appending the ellipsis marker only
// when something was cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + Ellipsis
}
