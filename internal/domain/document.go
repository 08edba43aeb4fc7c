package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Block types emitted by the document normalizer, in fixed order:
// optional image, truncated text, trailing source link.
const (
	BlockTypeImage      = "image"
	BlockTypeParagraph  = "paragraph"
	BlockTypeSourceLink = "source_link"
)

// Block is one content node of a display document.
type Block struct {
	Type string `json:"type"`
	Src  string `json:"src,omitempty"`
	Alt  string `json:"alt,omitempty"`
	Text string `json:"text,omitempty"`
	Href string `json:"href,omitempty"`
}

// BlockList stores an ordered block slice as JSON in the database.
type BlockList []Block

// Value implements the driver.Valuer interface for database serialization.
func (b BlockList) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (b *BlockList) Scan(value interface{}) error {
	if value == nil {
		*b = BlockList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan BlockList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, b)
}

// Document is the renderable form of an accepted article, associated with
// the destination board of its feed source. Created once, never mutated
// by the pipeline.
type Document struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	BoardID     string    `gorm:"type:text;not null;index:idx_documents_board" json:"board_id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Blocks      BlockList `gorm:"type:text" json:"blocks"`
	SourceURL   string    `gorm:"type:text;index:idx_documents_source" json:"source_url"`
	Category    string    `gorm:"type:text;default:news" json:"category"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}
