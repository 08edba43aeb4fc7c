package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const acceptHeader = "application/rss+xml, application/xml, text/xml, application/atom+xml"

// maxReasonLen bounds the reason string carried by a TransportError.
const maxReasonLen = 200

// TransportError reports a failed feed or page retrieval: a network-level
// failure (Status 0) or a non-2xx response.
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("transport error: %s", e.Reason)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Reason)
}

func truncateReason(s string) string {
	if len(s) > maxReasonLen {
		return s[:maxReasonLen]
	}
	return s
}

// FetcherConfig holds feed fetcher settings.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves raw feed bytes over HTTP with a fixed client signature.
// Some feed servers block requests without a recognizable User-Agent, so
// the signature is always sent.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a new feed fetcher.
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; RSS-Bot/1.0)"
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", ua)
	client.SetHeader("Accept", acceptHeader)

	return &Fetcher{client: client}
}

// Fetch performs a single GET of the feed URL and returns the raw body.
// Network failures and non-2xx statuses surface as a *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &TransportError{Reason: truncateReason(err.Error())}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &TransportError{
			Status: resp.StatusCode(),
			Reason: truncateReason(resp.Status()),
		}
	}
	return resp.Body(), nil
}
