package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/podslice/podslice/internal/clock"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	"github.com/podslice/podslice/internal/orgcontext"
	payoutdomain "github.com/podslice/podslice/internal/payout/domain"
	payoutprovider "github.com/podslice/podslice/internal/providers/payout"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Mocks --

type providerMock struct {
	mock.Mock
}

func (m *providerMock) RegisterPayee(ctx context.Context, req payoutprovider.RegisterPayeeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *providerMock) GetPayeeStatus(ctx context.Context, payeeReference string) (string, error) {
	args := m.Called(ctx, payeeReference)
	return args.String(0), args.Error(1)
}

func (m *providerMock) SendPayout(ctx context.Context, req payoutprovider.SendPayoutRequest) (*payoutprovider.PayoutResult, error) {
	args := m.Called(ctx, req)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*payoutprovider.PayoutResult), args.Error(1)
}

// -- Fixture --

type fixture struct {
	db       *gorm.DB
	svc      payoutdomain.Service
	provider *providerMock
	node     *snowflake.Node
	ctx      context.Context
	orgID    snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Single connection keeps concurrent claims serialized at the driver
	// instead of surfacing busy errors from the in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&royaltydomain.RoyaltyStatement{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	orgID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: orgID, Name: "Acme Pods", Slug: "acme-pods",
		PayoutStatus:  orgdomain.PayoutStatusNotConfigured,
		TaxFormStatus: orgdomain.TaxFormStatusNone,
		CreatedAt:     now, UpdatedAt: now,
	}).Error)

	provider := &providerMock{}
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(now),
		Provider: provider,
	})

	return &fixture{
		db:       db,
		svc:      svc,
		provider: provider,
		node:     node,
		ctx:      orgcontext.WithOrgID(context.Background(), orgID),
		orgID:    orgID,
	}
}

func (f *fixture) onboard(t *testing.T) {
	t.Helper()
	require.NoError(t, f.db.Model(&orgdomain.Organization{}).
		Where("id = ?", f.orgID).
		Updates(map[string]any{
			"payee_reference": "payee_123",
			"payout_status":   orgdomain.PayoutStatusActive,
			"tax_form_status": orgdomain.TaxFormStatusSubmitted,
		}).Error)
}

func (f *fixture) addStatement(t *testing.T, amount string, status string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Create(&royaltydomain.RoyaltyStatement{
		ID:               id,
		OrgID:            f.orgID,
		PeriodStart:      start,
		PeriodEnd:        start.AddDate(0, 1, 0).Add(-time.Millisecond),
		CalculatedAmount: decimal.RequireFromString(amount),
		Currency:         "USD",
		PaymentStatus:    status,
		CreatedAt:        start,
		UpdatedAt:        start,
	}).Error)
	return id
}

func (f *fixture) statement(t *testing.T, id snowflake.ID) royaltydomain.RoyaltyStatement {
	t.Helper()
	var statement royaltydomain.RoyaltyStatement
	require.NoError(t, f.db.Where("id = ?", id).First(&statement).Error)
	return statement
}

// -- Payout --

func TestPayoutSuccess(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	statementID := f.addStatement(t, "1.50", royaltydomain.PaymentStatusPending)

	f.provider.On("SendPayout", mock.Anything, mock.MatchedBy(func(req payoutprovider.SendPayoutRequest) bool {
		return req.PayeeReference == "payee_123" &&
			req.Currency == "USD" &&
			req.Reference == "stmt_"+statementID.String() &&
			req.Amount.Equal(decimal.RequireFromString("1.50"))
	})).Return(&payoutprovider.PayoutResult{TransactionID: "txn_42", Status: "completed"}, nil)

	receipt, err := f.svc.Payout(f.ctx, statementID)
	require.NoError(t, err)
	assert.Equal(t, "txn_42", receipt.TransactionID)
	assert.Equal(t, royaltydomain.PaymentStatusPaid, receipt.Status)
	assert.True(t, receipt.Amount.Equal(decimal.RequireFromString("1.50")))

	stored := f.statement(t, statementID)
	assert.Equal(t, royaltydomain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "txn_42", stored.ExternalTransactionID)
	require.NotNil(t, stored.PaidAt)

	f.provider.AssertExpectations(t)
}

func TestPayoutProviderFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	statementID := f.addStatement(t, "2.00", royaltydomain.PaymentStatusPending)

	providerErr := &payoutprovider.ProviderError{StatusCode: 500, Message: "upstream down"}
	f.provider.On("SendPayout", mock.Anything, mock.Anything).Return(nil, providerErr)

	_, err := f.svc.Payout(f.ctx, statementID)
	require.Error(t, err)
	assert.ErrorAs(t, err, &providerErr)

	stored := f.statement(t, statementID)
	assert.Equal(t, royaltydomain.PaymentStatusFailed, stored.PaymentStatus)
	assert.Nil(t, stored.PaidAt)
}

func TestPayoutRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	statementID := f.addStatement(t, "2.00", royaltydomain.PaymentStatusFailed)

	f.provider.On("SendPayout", mock.Anything, mock.Anything).
		Return(&payoutprovider.PayoutResult{TransactionID: "txn_retry", Status: "completed"}, nil)

	receipt, err := f.svc.Payout(f.ctx, statementID)
	require.NoError(t, err)
	assert.Equal(t, "txn_retry", receipt.TransactionID)

	stored := f.statement(t, statementID)
	assert.Equal(t, royaltydomain.PaymentStatusPaid, stored.PaymentStatus)
}

func TestPayoutPreconditionsCheckedInOrder(t *testing.T) {
	// Every gate failure must leave the statement untouched and never reach
	// the provider.
	tests := []struct {
		name        string
		setup       func(t *testing.T, f *fixture) snowflake.ID
		expectedErr error
	}{
		{
			name: "statement not found",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				f.onboard(t)
				return f.node.Generate()
			},
			expectedErr: payoutdomain.ErrStatementNotFound,
		},
		{
			name: "payee not registered",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				return f.addStatement(t, "1.00", royaltydomain.PaymentStatusPending)
			},
			expectedErr: payoutdomain.ErrOnboardingIncomplete,
		},
		{
			name: "tax profile missing",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				require.NoError(t, f.db.Model(&orgdomain.Organization{}).
					Where("id = ?", f.orgID).
					Updates(map[string]any{
						"payee_reference": "payee_123",
						"payout_status":   orgdomain.PayoutStatusActive,
					}).Error)
				return f.addStatement(t, "1.00", royaltydomain.PaymentStatusPending)
			},
			expectedErr: payoutdomain.ErrTaxProfileMissing,
		},
		{
			name: "account not active",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				f.onboard(t)
				require.NoError(t, f.db.Model(&orgdomain.Organization{}).
					Where("id = ?", f.orgID).
					Update("payout_status", orgdomain.PayoutStatusPending).Error)
				return f.addStatement(t, "1.00", royaltydomain.PaymentStatusPending)
			},
			expectedErr: payoutdomain.ErrAccountNotActive,
		},
		{
			name: "already paid",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				f.onboard(t)
				return f.addStatement(t, "1.00", royaltydomain.PaymentStatusPaid)
			},
			expectedErr: payoutdomain.ErrAlreadyPaid,
		},
		{
			name: "zero amount",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				f.onboard(t)
				return f.addStatement(t, "0.00", royaltydomain.PaymentStatusPending)
			},
			expectedErr: payoutdomain.ErrZeroAmount,
		},
		{
			name: "payout already in progress",
			setup: func(t *testing.T, f *fixture) snowflake.ID {
				f.onboard(t)
				return f.addStatement(t, "1.00", royaltydomain.PaymentStatusProcessing)
			},
			expectedErr: payoutdomain.ErrPayoutInProgress,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			statementID := tc.setup(t, f)

			_, err := f.svc.Payout(f.ctx, statementID)
			assert.ErrorIs(t, err, tc.expectedErr)

			f.provider.AssertNotCalled(t, "SendPayout", mock.Anything, mock.Anything)
		})
	}
}

func TestPayoutAccountNotActiveCarriesStatus(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	require.NoError(t, f.db.Model(&orgdomain.Organization{}).
		Where("id = ?", f.orgID).
		Update("payout_status", orgdomain.PayoutStatusFailed).Error)
	statementID := f.addStatement(t, "1.00", royaltydomain.PaymentStatusPending)

	_, err := f.svc.Payout(f.ctx, statementID)
	var notActive *payoutdomain.AccountNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, orgdomain.PayoutStatusFailed, notActive.Status)
}

func TestPayoutScopedToOrg(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	statementID := f.addStatement(t, "1.00", royaltydomain.PaymentStatusPending)

	otherCtx := orgcontext.WithOrgID(context.Background(), f.node.Generate())
	_, err := f.svc.Payout(otherCtx, statementID)
	assert.ErrorIs(t, err, payoutdomain.ErrStatementNotFound)
}

func TestPayoutConcurrentClaimSingleTransfer(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	statementID := f.addStatement(t, "5.00", royaltydomain.PaymentStatusPending)

	var transfers atomic.Int64
	f.provider.On("SendPayout", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			transfers.Add(1)
			time.Sleep(20 * time.Millisecond)
		}).
		Return(&payoutprovider.PayoutResult{TransactionID: "txn_once", Status: "completed"}, nil)

	const callers = 8
	var wg sync.WaitGroup
	var succeeded, inProgress atomic.Int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Payout(f.ctx, statementID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, payoutdomain.ErrPayoutInProgress),
				errors.Is(err, payoutdomain.ErrAlreadyPaid):
				inProgress.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one caller wins the claim and only that one reaches the
	// provider; every loser stops at the conditional update.
	assert.Equal(t, int64(1), transfers.Load())
	assert.Equal(t, int64(1), succeeded.Load())
	assert.Equal(t, int64(callers-1), inProgress.Load())
}

// -- Onboarding --

func TestRegisterPayee(t *testing.T) {
	f := newFixture(t)

	f.provider.On("RegisterPayee", mock.Anything, mock.MatchedBy(func(req payoutprovider.RegisterPayeeRequest) bool {
		return req.LegalName == "Acme Pods LLC" && req.Country == "US"
	})).Return("payee_new", nil)

	reference, err := f.svc.RegisterPayee(f.ctx, payoutdomain.RegisterPayeeRequest{
		LegalName:     "Acme Pods LLC",
		Email:         "finance@acmepods.example",
		Country:       "us",
		AccountNumber: "000123456789",
		RoutingNumber: "110000000",
		BankName:      "First Example Bank",
	})
	require.NoError(t, err)
	assert.Equal(t, "payee_new", reference)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", f.orgID).First(&org).Error)
	assert.Equal(t, "payee_new", org.PayeeReference)
	assert.Equal(t, orgdomain.PayoutStatusActive, org.PayoutStatus)
}

func TestRegisterPayeeValidation(t *testing.T) {
	valid := payoutdomain.RegisterPayeeRequest{
		LegalName:     "Acme Pods LLC",
		Email:         "finance@acmepods.example",
		Country:       "US",
		AccountNumber: "000123456789",
		RoutingNumber: "110000000",
	}

	tests := []struct {
		name        string
		mutate      func(req *payoutdomain.RegisterPayeeRequest)
		expectedErr error
	}{
		{"blank legal name", func(r *payoutdomain.RegisterPayeeRequest) { r.LegalName = "  " }, payoutdomain.ErrInvalidLegalName},
		{"bad email", func(r *payoutdomain.RegisterPayeeRequest) { r.Email = "nope" }, payoutdomain.ErrInvalidEmail},
		{"bad country", func(r *payoutdomain.RegisterPayeeRequest) { r.Country = "USA" }, payoutdomain.ErrInvalidCountry},
		{"missing account", func(r *payoutdomain.RegisterPayeeRequest) { r.AccountNumber = "" }, payoutdomain.ErrInvalidBankDetails},
		{"missing routing", func(r *payoutdomain.RegisterPayeeRequest) { r.RoutingNumber = "" }, payoutdomain.ErrInvalidBankDetails},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req := valid
			tc.mutate(&req)

			_, err := f.svc.RegisterPayee(f.ctx, req)
			assert.ErrorIs(t, err, tc.expectedErr)
			f.provider.AssertNotCalled(t, "RegisterPayee", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterPayeeRefusesSecondRegistration(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)

	_, err := f.svc.RegisterPayee(f.ctx, payoutdomain.RegisterPayeeRequest{
		LegalName:     "Acme Pods LLC",
		Email:         "finance@acmepods.example",
		Country:       "US",
		AccountNumber: "000123456789",
		RoutingNumber: "110000000",
	})
	assert.ErrorIs(t, err, payoutdomain.ErrPayeeAlreadyRegistered)
	f.provider.AssertNotCalled(t, "RegisterPayee", mock.Anything, mock.Anything)
}

func TestSubmitTaxProfile(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SubmitTaxProfile(f.ctx, payoutdomain.SubmitTaxProfileRequest{
		TaxID:        "12-3456789",
		Jurisdiction: "us",
		EntityType:   "llc",
		Agreed:       true,
	})
	require.NoError(t, err)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", f.orgID).First(&org).Error)
	assert.Equal(t, orgdomain.TaxFormStatusSubmitted, org.TaxFormStatus)
	assert.Equal(t, "US", org.TaxJurisdiction)
	require.NotNil(t, org.TaxAgreedAt)
}

func TestSubmitTaxProfileRequiresAgreement(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SubmitTaxProfile(f.ctx, payoutdomain.SubmitTaxProfileRequest{
		TaxID:        "12-3456789",
		Jurisdiction: "US",
		EntityType:   "llc",
		Agreed:       false,
	})
	assert.ErrorIs(t, err, payoutdomain.ErrAgreementRequired)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", f.orgID).First(&org).Error)
	assert.Equal(t, orgdomain.TaxFormStatusNone, org.TaxFormStatus)
}

func TestSyncPayoutStatus(t *testing.T) {
	tests := []struct {
		name     string
		live     string
		expected string
	}{
		{"active maps to active", payoutprovider.PayeeStatusActive, orgdomain.PayoutStatusActive},
		{"pending maps to pending", payoutprovider.PayeeStatusPending, orgdomain.PayoutStatusPending},
		{"suspended maps to failed", payoutprovider.PayeeStatusSuspended, orgdomain.PayoutStatusFailed},
		{"failed maps to failed", payoutprovider.PayeeStatusFailed, orgdomain.PayoutStatusFailed},
		{"unknown maps to pending", "weird_new_status", orgdomain.PayoutStatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.onboard(t)

			f.provider.On("GetPayeeStatus", mock.Anything, "payee_123").Return(tc.live, nil)

			status, err := f.svc.SyncPayoutStatus(f.ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)

			var org orgdomain.Organization
			require.NoError(t, f.db.Where("id = ?", f.orgID).First(&org).Error)
			assert.Equal(t, tc.expected, org.PayoutStatus)
		})
	}
}

func TestSyncPayoutStatusRequiresPayee(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SyncPayoutStatus(f.ctx)
	assert.ErrorIs(t, err, payoutdomain.ErrOnboardingIncomplete)
	f.provider.AssertNotCalled(t, "GetPayeeStatus", mock.Anything, mock.Anything)
}
