// Package domain contains persistence models for raw interaction events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event kinds accepted by the tracking endpoint.
const (
	KindView     = "view"
	KindShare    = "share"
	KindClick    = "click"
	KindDownload = "download"
	KindPlay     = "play"
	KindComplete = "complete"
)

// ContentEvent is one interaction with a piece of generated content.
// Rows are append-only: never updated or deleted in normal operation.
type ContentEvent struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ContentID  snowflake.ID      `gorm:"not null;index:ix_content_events_content_occurred,priority:1" json:"content_id"`
	Kind       string            `gorm:"type:text;not null" json:"kind"`
	OccurredAt time.Time         `gorm:"not null;index:ix_content_events_content_occurred,priority:2" json:"occurred_at"`
	DurationMS *int64            `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ContentEvent) TableName() string { return "content_events" }

// ValidKind reports whether kind is one of the accepted event kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindView, KindShare, KindClick, KindDownload, KindPlay, KindComplete:
		return true
	default:
		return false
	}
}
