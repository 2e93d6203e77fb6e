// Package domain contains persistence models for royalty statements.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment status values on a royalty statement.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
)

// RoyaltyStatement is one statement per (organization, calendar-month period).
// CalculatedAmount is always the rate function applied to the stored totals;
// recalculation before payment overwrites totals and amount in place.
type RoyaltyStatement struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID                 snowflake.ID    `gorm:"not null;uniqueIndex:ux_royalty_statements_org_period,priority:1" json:"org_id"`
	PeriodStart           time.Time       `gorm:"not null;uniqueIndex:ux_royalty_statements_org_period,priority:2" json:"period_start"`
	PeriodEnd             time.Time       `gorm:"not null;uniqueIndex:ux_royalty_statements_org_period,priority:3" json:"period_end"`
	TotalViews            int64           `gorm:"not null;default:0" json:"total_views"`
	TotalShares           int64           `gorm:"not null;default:0" json:"total_shares"`
	CalculatedAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"calculated_amount"`
	Currency              string          `gorm:"type:text;not null;default:USD" json:"currency"`
	PaymentStatus         string          `gorm:"type:text;not null;default:pending" json:"payment_status"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`
	ExternalTransactionID string          `gorm:"type:text" json:"external_transaction_id,omitempty"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RoyaltyStatement) TableName() string { return "royalty_statements" }

// RoyaltyLineItem is the per-content breakdown of a statement. Line items are
// written once when the statement is first created; recalculation does not
// regenerate them. Independent rounding means their sum only approximates
// the statement total.
type RoyaltyLineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	StatementID snowflake.ID    `gorm:"not null;index" json:"statement_id"`
	ContentID   snowflake.ID    `gorm:"not null" json:"content_id"`
	Views       int64           `gorm:"not null;default:0" json:"views"`
	Shares      int64           `gorm:"not null;default:0" json:"shares"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RoyaltyLineItem) TableName() string { return "royalty_line_items" }
