// Package images resolves a representative image URL for a feed article.
// Resolution is best-effort: in-feed candidates are tried first and the
// linked article page is crawled only as a last resort, so the one network
// call stays an explicit, substitutable step rather than a hidden side
// effect of parsing.
package images

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goalpost/feedsync/internal/feed"
	"github.com/goalpost/feedsync/internal/logger"
)

// img src variants inside an item description.
var descImgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]*src=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]+src=([^\s>"']+)[^>]*>`),
}

// bare image-looking URLs inside an item description.
var descURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(https?://[^\s"'<>)]+\.(?:jpg|jpeg|png|gif|webp))`),
	regexp.MustCompile(`(?i)(https?://cdn\.[^\s"'<>)]+)`),
	regexp.MustCompile(`(?i)(https?://[^\s"'<>)]*/[^\s"'<>)]*\.(?:jpg|jpeg|png|gif|webp))`),
}

// article page patterns, tried in order: class-hinted article/content
// images, og:image, twitter:image, then the first img as last resort.
var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]+class="[^"]*article[^"]*"[^>]+src=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*class="[^"]*article[^"]*"[^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]+class="[^"]*content[^"]*"[^>]+src=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*class="[^"]*content[^"]*"[^>]*>`),
	regexp.MustCompile(`(?i)<meta[^>]*property=["']og:image["'][^>]*content=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<meta[^>]*content=["']([^"']+)["'][^>]*property=["']og:image["'][^>]*>`),
	regexp.MustCompile(`(?i)<meta[^>]*name=["']twitter:image["'][^>]*content=["']([^"']+)["'][^>]*>`),
	regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`),
}

var imageExtRegex = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(\?.*)?$`)

// Config holds resolver settings for the article page fetch.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Resolver finds a best-effort image URL for an article. The zero result
// is the empty string; resolution never returns an error.
type Resolver struct {
	client *resty.Client
	log    *logger.Logger
}

// NewResolver creates a resolver with a browser-like client signature for
// the optional article page fetch.
func NewResolver(cfg *Config, log *logger.Logger) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", ua)

	if log == nil {
		log = logger.GetDefault()
	}
	return &Resolver{client: client, log: log}
}

// Resolve tries, in order: img tags and bare image URLs in the item
// description, the enclosure/media attachment of the item fragment, and
// finally a single fetch of the linked article page. Any network failure
// during the page fetch means "no image found", never an error.
func (r *Resolver) Resolve(ctx context.Context, itemXML, description, link string) string {
	if img := FromDescription(description); img != "" {
		return img
	}
	if img := fromAttachment(itemXML); img != "" {
		return img
	}
	if link == "" {
		return ""
	}
	return r.fromArticlePage(ctx, link)
}

// FromDescription scans an HTML description fragment for an image URL
// without any network access.
func FromDescription(description string) string {
	if description == "" {
		return ""
	}
	for _, re := range descImgPatterns {
		if m := re.FindStringSubmatch(description); m != nil {
			return strings.Trim(m[1], `"'`)
		}
	}
	for _, re := range descURLPatterns {
		if m := re.FindStringSubmatch(description); m != nil {
			return m[1]
		}
	}
	return ""
}

func fromAttachment(itemXML string) string {
	if itemXML == "" {
		return ""
	}
	if u := feed.ExtractAttr(itemXML, "enclosure", "url"); u != "" {
		return u
	}
	return feed.ExtractAttr(itemXML, "media:content", "url")
}

func (r *Resolver) fromArticlePage(ctx context.Context, link string) string {
	resp, err := r.client.R().SetContext(ctx).Get(link)
	if err != nil {
		r.log.WithError(err).WithField("url", link).Debug("article page fetch failed")
		return ""
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		r.log.WithFields(logger.Fields{"url": link, "status": resp.StatusCode()}).
			Debug("article page fetch returned non-2xx")
		return ""
	}

	html := string(resp.Body())
	for _, re := range pagePatterns {
		m := re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		candidate := absoluteURL(m[1], link)
		if isImageURL(candidate) {
			return candidate
		}
	}
	return ""
}

// absoluteURL rewrites a relative image path to an absolute URL using the
// article link's scheme and host.
func absoluteURL(imageURL, articleURL string) string {
	if !strings.HasPrefix(imageURL, "/") {
		return imageURL
	}
	u, err := url.Parse(articleURL)
	if err != nil {
		return imageURL
	}
	return u.Scheme + "://" + u.Host + imageURL
}

// isImageURL accepts candidates ending in a known image extension or
// containing the substring "image".
func isImageURL(u string) bool {
	return imageExtRegex.MatchString(u) || strings.Contains(u, "image")
}
