// Package payout holds the client for the external payout/KYC provider.
package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Payee status values reported by the provider.
const (
	PayeeStatusActive    = "active"
	PayeeStatusPending   = "pending"
	PayeeStatusSuspended = "suspended"
	PayeeStatusFailed    = "failed"
)

// RegisterPayeeRequest registers a bank-account-holding recipient.
type RegisterPayeeRequest struct {
	LegalName     string `json:"legal_name"`
	Email         string `json:"email"`
	Country       string `json:"country"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BankName      string `json:"bank_name"`
}

// SendPayoutRequest requests one transfer to a registered payee.
type SendPayoutRequest struct {
	PayeeReference string          `json:"payee_reference"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Reference      string          `json:"reference"`
}

// PayoutResult is the provider's acknowledgement of a transfer.
type PayoutResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Provider is the external payout provider boundary. No retries and no
// cancellation mid-flight: each call waits for a definitive answer.
type Provider interface {
	RegisterPayee(ctx context.Context, req RegisterPayeeRequest) (string, error)
	GetPayeeStatus(ctx context.Context, payeeReference string) (string, error)
	SendPayout(ctx context.Context, req SendPayoutRequest) (*PayoutResult, error)
}

// ProviderError carries the upstream HTTP status and message.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payout provider error (%d): %s", e.StatusCode, e.Message)
}

var ErrNotConfigured = errors.New("payout_provider_not_configured")
