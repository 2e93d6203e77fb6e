package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CalculateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type ListStatementsRequest struct {
	Limit int `json:"limit"`
}

type Service interface {
	// Calculate computes (or recomputes) the statement for the calendar month.
	// Recomputation overwrites totals and amount on the existing row and
	// resets it to pending; it never duplicates the statement or its line
	// items, and it refuses to touch a paid statement.
	Calculate(ctx context.Context, req CalculateRequest) (*RoyaltyStatement, error)
	ListStatements(ctx context.Context, req ListStatementsRequest) ([]*RoyaltyStatement, error)
	GetStatement(ctx context.Context, statementID snowflake.ID) (*RoyaltyStatement, []*RoyaltyLineItem, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrStatementNotFound   = errors.New("statement_not_found")
	ErrStatementPaid       = errors.New("statement_already_paid")
	ErrStatementProcessing = errors.New("payout_in_progress")
	ErrCalculationFailed   = errors.New("calculation_failed")
)
