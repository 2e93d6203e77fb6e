// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payout onboarding status values reported on the organization.
const (
	PayoutStatusNotConfigured = "NOT_CONFIGURED"
	PayoutStatusPending       = "PENDING"
	PayoutStatusActive        = "ACTIVE"
	PayoutStatusFailed        = "FAILED"
)

// Tax form status values.
const (
	TaxFormStatusNone      = "NONE"
	TaxFormStatusSubmitted = "SUBMITTED"
)

// Organization represents a tenant owning podcasts, content and royalty
// statements. The payout profile gating royalty payouts is embedded here.
type Organization struct {
	ID       snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name     string            `gorm:"type:text;not null" json:"name"`
	Slug     string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	PayeeReference string  `gorm:"type:text" json:"payee_reference,omitempty"`
	PayoutStatus   string  `gorm:"type:text;not null;default:NOT_CONFIGURED" json:"payout_status"`
	TaxFormStatus  string  `gorm:"type:text;not null;default:NONE" json:"tax_form_status"`
	TaxID          string  `gorm:"type:text" json:"-"`
	TaxJurisdiction string `gorm:"type:text" json:"tax_jurisdiction,omitempty"`
	TaxEntityType  string  `gorm:"type:text" json:"tax_entity_type,omitempty"`
	TaxAgreedAt    *time.Time `json:"tax_agreed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// PayoutReady reports whether every onboarding precondition for payouts holds.
func (o Organization) PayoutReady() bool {
	return o.PayeeReference != "" &&
		o.TaxFormStatus == TaxFormStatusSubmitted &&
		o.PayoutStatus == PayoutStatusActive
}

// OrganizationMember represents membership of a user in an organization.
type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
