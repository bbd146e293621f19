package payhero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	providerport "github.com/maryreaky/betrix-payments/internal/domain/port/provider"
)

// Config holds provider client settings
type Config struct {
	BaseURL   string
	APIKey    string
	ChannelID string
	Timeout   time.Duration
}

// Client talks to the PayHero-style mobile-money API: STK-push initiation
// and direct status queries. All failures come back as *errs.ProviderError
// so every caller applies one retry policy.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     coreport.Logger
}

// NewClient creates a provider client
func NewClient(cfg Config, logger coreport.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type initiateBody struct {
	Amount      int64  `json:"amount"`
	PhoneNumber string `json:"phone_number"`
	ChannelID   string `json:"channel_id"`
	Provider    string `json:"provider"`
	ExternalRef string `json:"external_reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initiateResult struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Instructions  string `json:"customer_message"`
}

// InitiatePayment asks the provider to push a payment prompt to the
// counterparty's phone
func (c *Client) InitiatePayment(ctx context.Context, req providerport.InitiateRequest) (*providerport.InitiateResponse, error) {
	body := initiateBody{
		// the provider API takes whole currency units
		Amount:      req.AmountInCents / 100,
		PhoneNumber: req.Phone,
		ChannelID:   c.cfg.ChannelID,
		Provider:    "m-pesa",
		ExternalRef: req.Reference,
		CallbackURL: req.CallbackURL,
	}

	raw, status, err := c.post(ctx, "/payments", body)
	if err != nil {
		return nil, classify("initiate", status, raw, err)
	}

	var result initiateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errs.NewProviderError(errs.KindTransient, "initiate", status, string(raw),
			fmt.Errorf("malformed initiation response: %w", err))
	}

	c.logger.Info("Payment initiation accepted by provider", map[string]any{
		"reference":   req.Reference,
		"provider_id": result.TransactionID,
	})

	return &providerport.InitiateResponse{
		ProviderTransactionID: result.TransactionID,
		Instructions:          result.Instructions,
		RawPayload:            string(raw),
	}, nil
}

type statusResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// QueryStatus asks the provider for the current status of a payment
func (c *Client) QueryStatus(ctx context.Context, reference string) (*providerport.StatusResponse, error) {
	endpoint := "/transaction-status?reference=" + url.QueryEscape(reference)
	raw, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, classify("status", status, raw, err)
	}

	var result statusResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errs.NewProviderError(errs.KindTransient, "status", status, string(raw),
			fmt.Errorf("malformed status response: %w", err))
	}

	return &providerport.StatusResponse{
		Status:                entity.NormalizeProviderStatus(result.Status),
		ProviderTransactionID: result.TransactionID,
		RawPayload:            string(raw),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	return c.do(req)
}

// do executes the request and returns the body, status code and an error
// for non-2xx responses
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, resp.StatusCode, fmt.Errorf("provider returned http %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// classify maps a failed provider call onto the error-kind vocabulary:
// credentials failures are Unauthorized, other 4xx are PermanentRejection,
// everything else (network, 5xx) is Transient
func classify(operation string, statusCode int, body []byte, err error) error {
	kind := errs.KindTransient
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = errs.KindUnauthorized
	case statusCode >= 400 && statusCode < 500:
		kind = errs.KindPermanentRejection
	}
	return errs.NewProviderError(kind, operation, statusCode, string(body), err)
}
