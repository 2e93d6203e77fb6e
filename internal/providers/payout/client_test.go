package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podslice/podslice/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	tokenRequests atomic.Int64
	payeeStatus   string
	failPayouts   bool
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Form.Get("client_id") != "client_abc" || r.Form.Get("client_secret") != "secret_xyz" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok_123",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v1/payees", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"payee_reference": "payee_987"})
	})
	mux.HandleFunc("/v1/payees/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": f.payeeStatus})
	})
	mux.HandleFunc("/v1/payouts", func(w http.ResponseWriter, r *http.Request) {
		if f.failPayouts {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "insufficient balance"})
			return
		}
		var req SendPayoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transaction_id": "txn_" + req.Reference,
			"status":         "completed",
		})
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeProvider) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient(config.PayoutProviderConfig{
		BaseURL:      srv.URL,
		ClientID:     "client_abc",
		ClientSecret: "secret_xyz",
		TimeoutSec:   5,
	}, zap.NewNop())
	return client, srv
}

func TestClientTokenIsCachedAcrossCalls(t *testing.T) {
	fake := &fakeProvider{payeeStatus: "active"}
	client, _ := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.RegisterPayee(ctx, RegisterPayeeRequest{LegalName: "Acme"})
	require.NoError(t, err)
	_, err = client.GetPayeeStatus(ctx, "payee_987")
	require.NoError(t, err)
	_, err = client.SendPayout(ctx, SendPayoutRequest{
		PayeeReference: "payee_987",
		Amount:         decimal.RequireFromString("1.50"),
		Currency:       "USD",
		Reference:      "stmt_1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), fake.tokenRequests.Load())
}

func TestClientRegisterPayee(t *testing.T) {
	fake := &fakeProvider{}
	client, _ := newTestClient(t, fake)

	reference, err := client.RegisterPayee(context.Background(), RegisterPayeeRequest{
		LegalName: "Acme Pods LLC",
		Email:     "finance@acmepods.example",
		Country:   "US",
	})
	require.NoError(t, err)
	assert.Equal(t, "payee_987", reference)
}

func TestClientGetPayeeStatusNormalizesCase(t *testing.T) {
	fake := &fakeProvider{payeeStatus: " ACTIVE "}
	client, _ := newTestClient(t, fake)

	status, err := client.GetPayeeStatus(context.Background(), "payee_987")
	require.NoError(t, err)
	assert.Equal(t, PayeeStatusActive, status)
}

func TestClientSendPayoutErrorCarriesProviderMessage(t *testing.T) {
	fake := &fakeProvider{failPayouts: true}
	client, _ := newTestClient(t, fake)

	_, err := client.SendPayout(context.Background(), SendPayoutRequest{
		PayeeReference: "payee_987",
		Amount:         decimal.RequireFromString("10.00"),
		Currency:       "USD",
		Reference:      "stmt_2",
	})
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusUnprocessableEntity, providerErr.StatusCode)
	assert.Equal(t, "insufficient balance", providerErr.Message)
}

func TestClientWithoutConfiguration(t *testing.T) {
	client := NewClient(config.PayoutProviderConfig{}, zap.NewNop())

	_, err := client.GetPayeeStatus(context.Background(), "payee_987")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTokenCacheRefetchesAfterExpiry(t *testing.T) {
	fake := &fakeProvider{payeeStatus: "active"}
	client, _ := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.GetPayeeStatus(ctx, "payee_987")
	require.NoError(t, err)
	require.Equal(t, int64(1), fake.tokenRequests.Load())

	// Drop the cached expiry below the renewal skew; the next call must
	// fetch a fresh token.
	client.tokens.mu.Lock()
	client.tokens.expiresAt = client.tokens.expiresAt.Add(-time.Hour)
	client.tokens.mu.Unlock()

	_, err = client.GetPayeeStatus(ctx, "payee_987")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fake.tokenRequests.Load())
}
