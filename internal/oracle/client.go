// Package oracle provides implementations of the custody oracle port: an HTTP
// client for a real verification oracle, and a local stub for development.
package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vaultgate/internal/custody"
	id "vaultgate/pkg/domain"
	"vaultgate/pkg/platform/sentinel"
)

const defaultTimeout = 10 * time.Second

// Client dispatches verification requests to an oracle over HTTP JSON.
type Client struct {
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dispatchRequest struct {
	Script         string   `json:"script"`
	Secrets        string   `json:"secrets,omitempty"`
	Args           []string `json:"args"`
	SubscriptionID string   `json:"subscription_id"`
	GasLimit       uint64   `json:"gas_limit"`
}

type dispatchResponse struct {
	RequestID string `json:"request_id"`
}

// Dispatch sends the verification request to the endpoint carried in the
// oracle settings and returns the oracle-assigned request id.
func (c *Client) Dispatch(ctx context.Context, req custody.VerificationRequest) (id.RequestID, error) {
	if req.Endpoint == "" {
		return "", fmt.Errorf("%w: oracle endpoint not configured", sentinel.ErrInvalidState)
	}
	body, err := json.Marshal(dispatchRequest{
		Script:         req.Script,
		Secrets:        base64.StdEncoding.EncodeToString(req.Secrets),
		Args:           req.Args,
		SubscriptionID: req.SubscriptionID,
		GasLimit:       req.GasLimit,
	})
	if err != nil {
		return "", fmt.Errorf("encoding dispatch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: oracle returned status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding dispatch response: %w", err)
	}
	return id.ParseRequestID(out.RequestID)
}
