package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/podslice/podslice/internal/config"
	"go.uber.org/zap"
)

// tokenCache holds one OAuth access token with its expiry. It is owned by the
// client instance, not process-wide, so credentials stay isolated per client
// and tests can run against independent instances.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// expirySkew renews tokens slightly before the provider's deadline.
const expirySkew = 30 * time.Second

func (c *tokenCache) get(ctx context.Context, fetch func(context.Context) (string, time.Duration, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt.Add(-expirySkew)) {
		return c.token, nil
	}

	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
	return token, nil
}

// Client is the HTTP implementation of Provider using OAuth client
// credentials.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *zap.Logger
	tokens       *tokenCache
}

func NewClient(cfg config.PayoutProviderConfig, log *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.Named("providers.payout"),
		tokens:       &tokenCache{},
	}
}

func (c *Client) RegisterPayee(ctx context.Context, req RegisterPayeeRequest) (string, error) {
	var resp struct {
		PayeeReference string `json:"payee_reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/payees", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.PayeeReference) == "" {
		return "", &ProviderError{StatusCode: http.StatusBadGateway, Message: "missing payee reference in response"}
	}
	return resp.PayeeReference, nil
}

func (c *Client) GetPayeeStatus(ctx context.Context, payeeReference string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	path := "/v1/payees/" + url.PathEscape(payeeReference)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(resp.Status)), nil
}

func (c *Client) SendPayout(ctx context.Context, req SendPayoutRequest) (*PayoutResult, error) {
	var resp PayoutResult
	if err := c.do(ctx, http.MethodPost, "/v1/payouts", req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.TransactionID) == "" {
		return nil, &ProviderError{StatusCode: http.StatusBadGateway, Message: "missing transaction id in response"}
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" || c.clientID == "" {
		return ErrNotConfigured
	}

	token, err := c.tokens.get(ctx, c.fetchToken)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ProviderError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &ProviderError{StatusCode: resp.StatusCode, Message: "malformed provider response"}
		}
	}
	return nil
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, &ProviderError{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, &ProviderError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, &ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(raw)}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.AccessToken == "" {
		return "", 0, &ProviderError{StatusCode: resp.StatusCode, Message: "malformed token response"}
	}

	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	return body.AccessToken, ttl, nil
}

func providerMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if len(raw) == 0 {
		return "empty response"
	}
	return fmt.Sprintf("%.200s", string(raw))
}
