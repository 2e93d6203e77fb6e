package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/podslice/podslice/internal/clock"
	obsmetrics "github.com/podslice/podslice/internal/observability/metrics"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	"github.com/podslice/podslice/internal/orgcontext"
	payoutdomain "github.com/podslice/podslice/internal/payout/domain"
	payoutprovider "github.com/podslice/podslice/internal/providers/payout"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Provider   payoutprovider.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	provider   payoutprovider.Provider
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payout.service"),
		clock:      p.Clock,
		provider:   p.Provider,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Payout(ctx context.Context, statementID snowflake.ID) (*payoutdomain.Receipt, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, payoutdomain.ErrInvalidOrganization
	}

	statement, err := s.loadStatement(ctx, statementID, orgID)
	if err != nil {
		return nil, err
	}

	org, err := s.loadOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	// Precondition gates, checked in order, no side effects on failure.
	if org.PayeeReference == "" {
		return nil, payoutdomain.ErrOnboardingIncomplete
	}
	if org.TaxFormStatus != orgdomain.TaxFormStatusSubmitted {
		return nil, payoutdomain.ErrTaxProfileMissing
	}
	if org.PayoutStatus != orgdomain.PayoutStatusActive {
		return nil, &payoutdomain.AccountNotActiveError{Status: org.PayoutStatus}
	}
	if statement.PaymentStatus == royaltydomain.PaymentStatusPaid {
		return nil, payoutdomain.ErrAlreadyPaid
	}
	if !statement.CalculatedAmount.IsPositive() {
		return nil, payoutdomain.ErrZeroAmount
	}

	// Atomic claim: the conditional update is the only serialization for
	// concurrent payout calls on the same statement. The loser of the race
	// sees zero rows affected and stops before any provider call. Failed
	// statements are claimable again so a provider outage can be retried.
	now := s.clock.Now()
	claim := s.db.WithContext(ctx).Exec(
		`UPDATE royalty_statements
		 SET payment_status = ?, updated_at = ?
		 WHERE id = ? AND payment_status IN (?, ?)`,
		royaltydomain.PaymentStatusProcessing,
		now,
		statement.ID,
		royaltydomain.PaymentStatusPending,
		royaltydomain.PaymentStatusFailed,
	)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil, payoutdomain.ErrPayoutInProgress
	}

	result, err := s.provider.SendPayout(ctx, payoutprovider.SendPayoutRequest{
		PayeeReference: org.PayeeReference,
		Amount:         statement.CalculatedAmount,
		Currency:       statement.Currency,
		Reference:      "stmt_" + statement.ID.String(),
	})
	if err != nil {
		// The statement id is carried directly from the claim above, never
		// recovered from the provider's error text.
		s.markFailed(ctx, statement.ID)
		if s.obsMetrics != nil {
			s.obsMetrics.RecordPayoutAttempt(ctx, "failed")
		}
		return nil, err
	}

	paidAt := s.clock.Now()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE royalty_statements
		 SET payment_status = ?, paid_at = ?, external_transaction_id = ?, updated_at = ?
		 WHERE id = ?`,
		royaltydomain.PaymentStatusPaid,
		paidAt,
		result.TransactionID,
		paidAt,
		statement.ID,
	).Error; err != nil {
		// The provider transfer went through; losing the paid transition
		// leaves the statement stuck in processing for operator
		// reconciliation against the transaction id logged here.
		s.log.Error("payout succeeded but paid transition failed",
			zap.String("statement_id", statement.ID.String()),
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err),
		)
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayoutAttempt(ctx, "paid")
	}
	s.log.Info("statement paid",
		zap.String("statement_id", statement.ID.String()),
		zap.String("transaction_id", result.TransactionID),
		zap.String("amount", statement.CalculatedAmount.StringFixed(2)),
	)

	return &payoutdomain.Receipt{
		TransactionID: result.TransactionID,
		Status:        royaltydomain.PaymentStatusPaid,
		Amount:        statement.CalculatedAmount,
		Currency:      statement.Currency,
	}, nil
}

func (s *Service) markFailed(ctx context.Context, statementID snowflake.ID) {
	err := s.db.WithContext(ctx).Exec(
		`UPDATE royalty_statements
		 SET payment_status = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		royaltydomain.PaymentStatusFailed,
		s.clock.Now(),
		statementID,
		royaltydomain.PaymentStatusProcessing,
	).Error
	if err != nil {
		// Best effort only; logged, never retried.
		s.log.Warn("failed to mark statement failed",
			zap.String("statement_id", statementID.String()),
			zap.Error(err),
		)
	}
}

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

func (s *Service) RegisterPayee(ctx context.Context, req payoutdomain.RegisterPayeeRequest) (string, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return "", payoutdomain.ErrInvalidOrganization
	}

	legalName := strings.TrimSpace(req.LegalName)
	if legalName == "" {
		return "", payoutdomain.ErrInvalidLegalName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return "", payoutdomain.ErrInvalidEmail
	}
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if !countryCodeRe.MatchString(country) {
		return "", payoutdomain.ErrInvalidCountry
	}
	if strings.TrimSpace(req.AccountNumber) == "" || strings.TrimSpace(req.RoutingNumber) == "" {
		return "", payoutdomain.ErrInvalidBankDetails
	}

	org, err := s.loadOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org.PayeeReference != "" {
		return "", payoutdomain.ErrPayeeAlreadyRegistered
	}

	reference, err := s.provider.RegisterPayee(ctx, payoutprovider.RegisterPayeeRequest{
		LegalName:     legalName,
		Email:         email,
		Country:       country,
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		RoutingNumber: strings.TrimSpace(req.RoutingNumber),
		BankName:      strings.TrimSpace(req.BankName),
	})
	if err != nil {
		return "", err
	}

	// Activated optimistically; SyncPayoutStatus reconciles with whatever
	// the provider reports later.
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET payee_reference = ?, payout_status = ?, updated_at = ?
		 WHERE id = ?`,
		reference,
		orgdomain.PayoutStatusActive,
		s.clock.Now(),
		orgID,
	).Error; err != nil {
		return "", err
	}

	s.log.Info("payee registered",
		zap.String("org_id", orgID.String()),
		zap.String("payee_reference", reference),
	)
	return reference, nil
}

func (s *Service) SubmitTaxProfile(ctx context.Context, req payoutdomain.SubmitTaxProfileRequest) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return payoutdomain.ErrInvalidOrganization
	}

	taxID := strings.TrimSpace(req.TaxID)
	if taxID == "" {
		return payoutdomain.ErrInvalidTaxID
	}
	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	if !countryCodeRe.MatchString(jurisdiction) {
		return payoutdomain.ErrInvalidJurisdiction
	}
	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" {
		return payoutdomain.ErrInvalidEntityType
	}
	if !req.Agreed {
		return payoutdomain.ErrAgreementRequired
	}

	if _, err := s.loadOrganization(ctx, orgID); err != nil {
		return err
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET tax_id = ?, tax_jurisdiction = ?, tax_entity_type = ?,
		     tax_agreed_at = ?, tax_form_status = ?, updated_at = ?
		 WHERE id = ?`,
		taxID,
		jurisdiction,
		entityType,
		now,
		orgdomain.TaxFormStatusSubmitted,
		now,
		orgID,
	).Error
}

func (s *Service) SyncPayoutStatus(ctx context.Context) (string, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return "", payoutdomain.ErrInvalidOrganization
	}

	org, err := s.loadOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org.PayeeReference == "" {
		return "", payoutdomain.ErrOnboardingIncomplete
	}

	live, err := s.provider.GetPayeeStatus(ctx, org.PayeeReference)
	if err != nil {
		return "", err
	}

	mapped := mapProviderStatus(live)
	if mapped != org.PayoutStatus {
		if err := s.db.WithContext(ctx).Exec(
			`UPDATE organizations SET payout_status = ?, updated_at = ? WHERE id = ?`,
			mapped,
			s.clock.Now(),
			orgID,
		).Error; err != nil {
			return "", err
		}
		s.log.Info("payout status synced",
			zap.String("org_id", orgID.String()),
			zap.String("from", org.PayoutStatus),
			zap.String("to", mapped),
		)
	}
	return mapped, nil
}

func mapProviderStatus(status string) string {
	switch status {
	case payoutprovider.PayeeStatusActive:
		return orgdomain.PayoutStatusActive
	case payoutprovider.PayeeStatusPending:
		return orgdomain.PayoutStatusPending
	case payoutprovider.PayeeStatusSuspended, payoutprovider.PayeeStatusFailed:
		return orgdomain.PayoutStatusFailed
	default:
		return orgdomain.PayoutStatusPending
	}
}

func (s *Service) loadStatement(ctx context.Context, statementID, orgID snowflake.ID) (*royaltydomain.RoyaltyStatement, error) {
	var statement royaltydomain.RoyaltyStatement
	err := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", statementID, orgID).
		First(&statement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payoutdomain.ErrStatementNotFound
		}
		return nil, err
	}
	return &statement, nil
}

func (s *Service) loadOrganization(ctx context.Context, orgID snowflake.ID) (*orgdomain.Organization, error) {
	var org orgdomain.Organization
	err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payoutdomain.ErrInvalidOrganization
		}
		return nil, err
	}
	return &org, nil
}
