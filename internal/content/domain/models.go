// Package domain contains persistence models for podcasts and generated content.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Podcast is the show owning episodes and generated content.
type Podcast struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Podcast) TableName() string { return "podcasts" }

// Content is one AI-generated piece derived from an episode. ViewCount and
// ShareCount are denormalized counters maintained by the tracking write path;
// royalties are computed from them.
type Content struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PodcastID  snowflake.ID `gorm:"not null;index" json:"podcast_id"`
	Title      string       `gorm:"type:text;not null" json:"title"`
	Kind       string       `gorm:"type:text;not null" json:"kind"`
	Body       string       `gorm:"type:text" json:"body,omitempty"`
	ViewCount  int64        `gorm:"not null;default:0" json:"view_count"`
	ShareCount int64        `gorm:"not null;default:0" json:"share_count"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Content) TableName() string { return "contents" }

// Content kinds produced by the generation pipeline.
const (
	KindSummary    = "summary"
	KindSocialPost = "social_post"
)
