package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// HTTPClient talks to a ledger gateway over JSON:
//
//	POST {base}/credentials     {credentialId, subject, commitment, type} -> {contractCredentialId}
//	POST {base}/proofs/verify   {proofBlob, predicate}                     -> {valid}
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewHTTPClient builds a client whose transport is traced with otelhttp
// unless cfg.HTTPClient is supplied.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPClient{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, client: client}
}

type registerResponse struct {
	ContractCredentialID string `json:"contractCredentialId"`
}

func (c *HTTPClient) Register(ctx context.Context, reg Registration) (string, error) {
	var resp registerResponse
	if err := c.post(ctx, "register", "/credentials", reg, &resp); err != nil {
		return "", err
	}
	if resp.ContractCredentialID == "" {
		return "", newError(ErrorBadData, "register", "response missing contractCredentialId", nil)
	}
	return resp.ContractCredentialID, nil
}

type corroborateRequest struct {
	ProofBlob string `json:"proofBlob"`
	Predicate string `json:"predicate"`
}

type corroborateResponse struct {
	Valid *bool `json:"valid"`
}

func (c *HTTPClient) Corroborate(ctx context.Context, proofBlob, predicate string) (bool, error) {
	var resp corroborateResponse
	if err := c.post(ctx, "corroborate", "/proofs/verify", corroborateRequest{ProofBlob: proofBlob, Predicate: predicate}, &resp); err != nil {
		return false, err
	}
	if resp.Valid == nil {
		return false, newError(ErrorBadData, "corroborate", "response missing valid", nil)
	}
	return *resp.Valid, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return newError(ErrorInternal, op, "failed to marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return newError(ErrorInternal, op, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return newError(ErrorTimeout, op, "request timeout", err)
		}
		return newError(ErrorOutage, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newError(ErrorBadData, op, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return newError(ErrorAuthentication, op, fmt.Sprintf("authentication failed: %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, op, "rate limit exceeded", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return newError(ErrorOutage, op, fmt.Sprintf("ledger unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return newError(ErrorBadData, op, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return newError(ErrorBadData, op, "failed to parse response", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

var _ Ledger = (*HTTPClient)(nil)
