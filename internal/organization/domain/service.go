package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Organization, error)
	Get(ctx context.Context) (*Organization, error)
	IsAdmin(ctx context.Context, userID snowflake.ID) (bool, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSlug         = errors.New("invalid_slug")
	ErrNotFound            = errors.New("organization_not_found")
	ErrSlugTaken           = errors.New("slug_taken")
)
