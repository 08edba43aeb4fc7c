package domain

import "time"

// FeedSource represents one subscribed feed configuration record.
// The ingestion pipeline only mutates its post-run health fields
// (ErrorCount, LastError, LastErrorAt, LastFetchedAt).
type FeedSource struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	Name          string     `gorm:"type:text" json:"name"`
	URL           string     `gorm:"type:text;not null" json:"url"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	BoardID       string     `gorm:"type:text;not null;index:idx_feed_sources_board" json:"board_id"`
	IsActive      bool       `gorm:"default:true;index:idx_feed_sources_active" json:"is_active"`
	ErrorCount    int        `gorm:"default:0" json:"error_count"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for FeedSource.
func (FeedSource) TableName() string {
	return "feed_sources"
}
