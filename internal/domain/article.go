package domain

import "time"

// Article is the parser's per-item output. It exists only in memory during
// a run; accepted articles are copied into a Snapshot and a Document.
type Article struct {
	Title       string
	Description string // HTML fragment as published
	Content     string // content:encoded / content fallback, as published
	Link        string // canonical link, the dedup key
	PublishedAt time.Time
	Author      string
	ImageURL    string // resolved representative image, empty if none
}
