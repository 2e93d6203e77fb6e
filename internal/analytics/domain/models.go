// Package domain contains persistence models for daily analytics rollups.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DailyRollup aggregates interaction counters for one (content, UTC day)
// pair. Counters are additive deltas: every aggregation pass over a window
// increments them, it never recomputes them from scratch. CompletionRate is
// derived and rewritten on every pass that touches the row.
type DailyRollup struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ContentID      snowflake.ID `gorm:"not null;uniqueIndex:ux_daily_rollups_content_day,priority:1" json:"content_id"`
	Day            time.Time    `gorm:"type:date;not null;uniqueIndex:ux_daily_rollups_content_day,priority:2" json:"day"`
	Views          int64        `gorm:"not null;default:0" json:"views"`
	Shares         int64        `gorm:"not null;default:0" json:"shares"`
	Clicks         int64        `gorm:"not null;default:0" json:"clicks"`
	Plays          int64        `gorm:"not null;default:0" json:"plays"`
	Completes      int64        `gorm:"not null;default:0" json:"completes"`
	ListenMSTotal  int64        `gorm:"column:listen_ms_total;not null;default:0" json:"listen_ms_total"`
	CompletionRate float64      `gorm:"not null;default:0" json:"completion_rate"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DailyRollup) TableName() string { return "daily_rollups" }
