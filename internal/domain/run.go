package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TriggerType identifies what initiated an ingestion run.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerHook      TriggerType = "hook"
)

// Valid reports whether t is a known trigger origin.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerManual, TriggerScheduled, TriggerHook:
		return true
	}
	return false
}

// RunStatus is the aggregate outcome of a batch run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusError   RunStatus = "error"
)

// Per-feed outcome statuses recorded in the run detail payload.
const (
	FeedOutcomeSuccess = "success"
	FeedOutcomeSkipped = "skipped"
	FeedOutcomeError   = "error"
)

// FeedResult is the per-source outcome row of one batch run.
type FeedResult struct {
	FeedID   string `json:"feed_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Imported int    `json:"imported"`
	Message  string `json:"message,omitempty"`
}

// RunDetail is the structured detail payload attached to a run record.
type RunDetail struct {
	Results   []FeedResult `json:"results"`
	FeedCount int          `json:"feed_count"`
}

// Value implements the driver.Valuer interface for database serialization.
func (d RunDetail) Value() (driver.Value, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (d *RunDetail) Scan(value interface{}) error {
	if value == nil {
		*d = RunDetail{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan RunDetail")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, d)
}

// RunRecord is the audit row written once per batch invocation.
type RunRecord struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	Trigger         TriggerType `gorm:"column:trigger_type;type:text;not null" json:"trigger_type"`
	Status          RunStatus   `gorm:"type:text;not null" json:"status"`
	FeedsProcessed  int         `gorm:"default:0" json:"feeds_processed"`
	PostsImported   int         `gorm:"default:0" json:"posts_imported"`
	ErrorMessage    string      `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTimeMs int64       `json:"execution_time_ms"`
	Detail          RunDetail   `gorm:"type:text" json:"detail"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TableName returns the database table name for RunRecord.
func (RunRecord) TableName() string {
	return "ingest_runs"
}
