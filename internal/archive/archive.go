// Package archive stores raw feed bodies in S3-compatible object storage
// so a failed or suspicious run can be replayed against the exact payload
// it saw. Archival is strictly best-effort: the ingestion pipeline treats
// every archive failure as a log line, never as a run failure.
package archive

import "context"

// Archive stores raw fetched payloads keyed by feed and fetch time.
type Archive interface {
	// Put stores one payload under the given key.
	Put(ctx context.Context, key string, body []byte) error
}
