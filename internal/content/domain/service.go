package domain

import (
	"context"
	"errors"
)

type CreateContentRequest struct {
	PodcastID string `json:"podcast_id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
}

type CreatePodcastRequest struct {
	Title string `json:"title"`
}

type ListContentRequest struct {
	PodcastID string `json:"podcast_id"`
	Limit     int    `json:"limit"`
}

type Service interface {
	CreatePodcast(ctx context.Context, req CreatePodcastRequest) (*Podcast, error)
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)
	ListContent(ctx context.Context, req ListContentRequest) ([]*Content, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPodcast      = errors.New("invalid_podcast")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrPodcastNotFound     = errors.New("podcast_not_found")
	ErrContentNotFound     = errors.New("content_not_found")
)
