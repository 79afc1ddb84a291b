package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"photofix-api/config"
)

// Client talks to the payment provider's HTTP API. The provider hosts the
// checkout page; we only create sessions and receive webhooks.
type Client struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.Billing.APIBaseURL,
		apiKey:     cfg.Billing.APIKey,
		successURL: cfg.Billing.SuccessURL,
		cancelURL:  cfg.Billing.CancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutSession is the provider's session object.
type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

type createSessionRequest struct {
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateCheckoutSession creates a hosted checkout session for an order.
// The order ID travels as the provider-side reference so webhook events can
// be correlated back.
func (c *Client) CreateCheckoutSession(ctx context.Context, orderID string, amountCents int64, currency string, metadata map[string]string) (*CheckoutSession, error) {
	payload := createSessionRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Reference:   orderID,
		SuccessURL:  c.successURL,
		CancelURL:   c.cancelURL,
		Metadata:    metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(data))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	return &session, nil
}
