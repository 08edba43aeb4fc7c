package domain

import "time"

// Snapshot is the append-only persisted record of an accepted article.
// Exactly one snapshot exists per unique link; the dedup check runs
// before insert, the unique index is a backstop.
type Snapshot struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	FeedID      string    `gorm:"type:text;not null;index:idx_snapshots_feed" json:"feed_id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Link        string    `gorm:"type:text;not null;uniqueIndex:idx_snapshots_link" json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Author      string    `gorm:"type:text" json:"author,omitempty"`
	ImageURL    string    `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Snapshot.
func (Snapshot) TableName() string {
	return "article_snapshots"
}
