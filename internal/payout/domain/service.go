// Package domain defines the payout state machine and onboarding contracts.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Receipt is returned for a successful payout.
type Receipt struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type RegisterPayeeRequest struct {
	LegalName     string `json:"legal_name"`
	Email         string `json:"email"`
	Country       string `json:"country"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BankName      string `json:"bank_name"`
}

type SubmitTaxProfileRequest struct {
	TaxID        string `json:"tax_id"`
	Jurisdiction string `json:"jurisdiction"`
	EntityType   string `json:"entity_type"`
	Agreed       bool   `json:"agreed"`
}

type Service interface {
	// Payout drives a pending statement through processing to paid or
	// failed. Precondition failures have no side effects; only one caller
	// can claim a given statement at a time.
	Payout(ctx context.Context, statementID snowflake.ID) (*Receipt, error)

	// RegisterPayee registers the organization with the external provider.
	// One-way: refuses to run again once a payee reference is stored.
	RegisterPayee(ctx context.Context, req RegisterPayeeRequest) (string, error)

	// SubmitTaxProfile records the tax profile; re-submission overwrites.
	SubmitTaxProfile(ctx context.Context, req SubmitTaxProfileRequest) error

	// SyncPayoutStatus re-reads the provider's live payee status and maps
	// it onto the organization's payout status, persisting only on change.
	SyncPayoutStatus(ctx context.Context) (string, error)
}

var (
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrStatementNotFound      = errors.New("statement_not_found")
	ErrOnboardingIncomplete   = errors.New("onboarding_incomplete")
	ErrTaxProfileMissing      = errors.New("tax_profile_missing")
	ErrAccountNotActive       = errors.New("account_not_active")
	ErrAlreadyPaid            = errors.New("already_paid")
	ErrZeroAmount             = errors.New("zero_amount")
	ErrPayoutInProgress       = errors.New("payout_in_progress")
	ErrPayeeAlreadyRegistered = errors.New("payee_already_registered")
	ErrInvalidLegalName       = errors.New("invalid_legal_name")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidCountry         = errors.New("invalid_country")
	ErrInvalidBankDetails     = errors.New("invalid_bank_details")
	ErrInvalidTaxID           = errors.New("invalid_tax_id")
	ErrInvalidJurisdiction    = errors.New("invalid_jurisdiction")
	ErrInvalidEntityType      = errors.New("invalid_entity_type")
	ErrAgreementRequired      = errors.New("agreement_required")
)

// AccountNotActiveError carries the organization's current payout status so
// the caller can resolve the gate without another query.
type AccountNotActiveError struct {
	Status string
}

func (e *AccountNotActiveError) Error() string {
	return fmt.Sprintf("account_not_active: current payout status is %s", e.Status)
}

func (e *AccountNotActiveError) Unwrap() error { return ErrAccountNotActive }
