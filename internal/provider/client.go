package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// Client re-fetches richer records from the payment provider for the
// dispatch branches whose webhook payload does not carry everything
// they need.
type Client interface {
	// GetCheckoutSession retrieves a checkout session with line items
	// expanded.
	GetCheckoutSession(ctx context.Context, id string) (*Session, error)
	// GetPaymentIntent retrieves a payment intent with its latest
	// charge expanded, for the billing email.
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

// HTTPClient talks to the Stripe REST API.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL, secretKey string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?expand[]=line_items", c.baseURL, url.PathEscape(id))

	var session Session
	if err := c.get(ctx, endpoint, &session); err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session %s: %w", id, err)
	}
	return &session, nil
}

func (c *HTTPClient) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s?expand[]=latest_charge", c.baseURL, url.PathEscape(id))

	var intent PaymentIntent
	if err := c.get(ctx, endpoint, &intent); err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", id, err)
	}
	return &intent, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Provider API returned non-success status",
			zap.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("provider API returned HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
