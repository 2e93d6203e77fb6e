package domain

import (
	"context"
	"errors"
	"time"
)

type RecordRequest struct {
	ContentID  string         `json:"content_id"`
	Kind       string         `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	DurationMS *int64         `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata"`
}

type ListRequest struct {
	ContentID string `json:"content_id"`
	Limit     int    `json:"limit"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*ContentEvent, error)
	List(ctx context.Context, req ListRequest) ([]*ContentEvent, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidContent      = errors.New("invalid_content")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidDuration     = errors.New("invalid_duration")
	ErrContentNotFound     = errors.New("content_not_found")
)
