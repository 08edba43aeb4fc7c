package feed

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/goalpost/feedsync/internal/domain"
)

// ErrUnrecognizedFeed is returned when the payload carries neither an RSS
// channel nor an Atom feed.
var ErrUnrecognizedFeed = errors.New("unrecognized feed payload")

// ImageResolver produces a best-effort absolute image URL for one item.
// The resolver may perform a single page fetch; it never fails, an empty
// string means unresolved.
type ImageResolver interface {
	Resolve(ctx context.Context, itemXML, description, link string) string
}

var (
	itemRegex  = regexp.MustCompile(`(?is)<item[\s>].*?</item>`)
	entryRegex = regexp.MustCompile(`(?is)<entry[\s>].*?</entry>`)
)

// pubDateLayouts are tried in order when parsing item publish timestamps.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// Parser turns raw feed bytes into article records. It splits the payload
// on item/entry boundaries and extracts fields through the tolerant
// fragment extractor; individual malformed items are dropped silently.
type Parser struct {
	resolver ImageResolver
	now      func() time.Time
}

// NewParser creates a parser using resolver for per-item image resolution.
func NewParser(resolver ImageResolver) *Parser {
	return &Parser{resolver: resolver, now: time.Now}
}

// Parse extracts the ordered article list from raw feed bytes.
// An item is dropped only when it has neither title nor link; an
// unparseable or absent publish date defaults to the current time so a
// bad date never blocks ingestion.
func (p *Parser) Parse(ctx context.Context, raw []byte) ([]domain.Article, error) {
	text := string(raw)

	atom := false
	fragments := itemRegex.FindAllString(text, -1)
	if len(fragments) == 0 {
		fragments = entryRegex.FindAllString(text, -1)
		atom = len(fragments) > 0
	}
	if len(fragments) == 0 {
		lower := strings.ToLower(text)
		if strings.Contains(lower, "<rss") || strings.Contains(lower, "<feed") {
			return nil, nil // valid but empty feed
		}
		return nil, ErrUnrecognizedFeed
	}

	articles := make([]domain.Article, 0, len(fragments))
	for _, frag := range fragments {
		a := p.parseItem(ctx, frag, atom)
		if a.Title == "" && a.Link == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (p *Parser) parseItem(ctx context.Context, frag string, atom bool) domain.Article {
	title := ExtractTag(frag, "title")
	link := p.itemLink(frag, atom)

	description := ExtractTag(frag, "description")
	if description == "" && atom {
		description = ExtractTag(frag, "summary")
	}

	content := ExtractTag(frag, "content:encoded")
	if content == "" {
		content = ExtractTag(frag, "content")
	}
	if content == "" {
		content = description
	}

	var image string
	if p.resolver != nil {
		image = p.resolver.Resolve(ctx, frag, description, link)
	}

	return domain.Article{
		Title:       title,
		Description: description,
		Content:     content,
		Link:        link,
		PublishedAt: p.publishTime(frag, atom),
		Author:      itemAuthor(frag, atom),
		ImageURL:    image,
	}
}

func (p *Parser) itemLink(frag string, atom bool) string {
	if atom {
		if href := ExtractAttr(frag, "link", "href"); href != "" {
			return href
		}
	}
	return ExtractTag(frag, "link")
}

func (p *Parser) publishTime(frag string, atom bool) time.Time {
	raw := ExtractTag(frag, "pubDate")
	if raw == "" && atom {
		raw = ExtractTag(frag, "updated")
		if raw == "" {
			raw = ExtractTag(frag, "published")
		}
	}
	if raw == "" {
		return p.now()
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return p.now()
}

func itemAuthor(frag string, atom bool) string {
	author := ExtractTag(frag, "author")
	if atom && author != "" {
		// Atom nests <name> inside <author>.
		if name := ExtractTag(author, "name"); name != "" {
			return name
		}
	}
	if author == "" {
		author = ExtractTag(frag, "dc:creator")
	}
	return CleanText(author)
}
