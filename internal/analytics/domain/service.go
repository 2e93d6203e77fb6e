package domain

import (
	"context"
	"errors"
	"time"
)

type AggregateRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type ListRollupsRequest struct {
	ContentID string    `json:"content_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

type Service interface {
	// Aggregate folds raw events in [From, To] (widened to whole UTC days)
	// into daily rollups for the organization in context. Calling it twice
	// over overlapping windows double-counts: the merge is additive by
	// design, at-least-once, not idempotent.
	Aggregate(ctx context.Context, req AggregateRequest) error
	ListRollups(ctx context.Context, req ListRollupsRequest) ([]*DailyRollup, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRange        = errors.New("invalid_range")
	ErrInvalidContent      = errors.New("invalid_content")
)
