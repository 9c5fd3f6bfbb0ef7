package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/config"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/conversion"
)

// maxResponseBodySize bounds how much of an ingestion API response is
// kept for logging.
const maxResponseBodySize = 64 << 10

// Result is the outcome of a full delivery attempt sequence. It is
// transient: used for logging and metrics, never stored.
type Result struct {
	Succeeded    bool
	HTTPStatus   *int
	ResponseBody string
	AttemptsMade int
}

// envelope is the Conversions API request body.
type envelope struct {
	Data          []conversion.Payload `json:"data"`
	TestEventCode string               `json:"test_event_code,omitempty"`
}

// Client posts conversion payloads to the ingestion endpoint with a
// bounded retry loop. Attempts are sequential; a non-2xx response is
// an observed outcome, not an error, so application-level rejections
// and transport failures are distinguishable in logs.
type Client struct {
	endpoint      string
	testEventCode string
	maxAttempts   int
	backoffBase   time.Duration
	backoffMax    time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewClient(fb config.FacebookConfig, cfg config.DeliveryConfig, logger *zap.Logger) *Client {
	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		fb.APIBaseURL, fb.APIVersion, fb.PixelID, fb.AccessToken)

	return &Client{
		endpoint:      endpoint,
		testEventCode: fb.TestEventCode,
		maxAttempts:   cfg.MaxAttempts,
		backoffBase:   cfg.BackoffBase,
		backoffMax:    cfg.BackoffMax,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Send delivers a single payload, retrying on transport errors and
// non-2xx responses until maxAttempts is exhausted. The failure of an
// exhausted sequence is logged and returned, never propagated to the
// webhook sender.
func (c *Client) Send(ctx context.Context, payload conversion.Payload) *Result {
	result := &Result{}

	body, err := json.Marshal(envelope{
		Data:          []conversion.Payload{payload},
		TestEventCode: c.testEventCode,
	})
	if err != nil {
		c.logger.Error("Failed to marshal conversion payload",
			zap.String("event_name", payload.EventName),
			zap.Error(err),
		)
		return result
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result.AttemptsMade = attempt

		status, respBody, retryAfter, err := c.post(ctx, body)
		result.HTTPStatus = status
		result.ResponseBody = respBody

		if err == nil && status != nil && *status >= 200 && *status < 300 {
			result.Succeeded = true
			c.logger.Info("Conversion delivered",
				zap.String("event_name", payload.EventName),
				zap.String("event_id", payload.EventID),
				zap.Int("http_status", *status),
				zap.Int("attempt", attempt),
			)
			return result
		}

		fields := []zap.Field{
			zap.String("event_name", payload.EventName),
			zap.String("event_id", payload.EventID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else if status != nil {
			fields = append(fields, zap.Int("http_status", *status))
		}

		if attempt == c.maxAttempts {
			c.logger.Error("Conversion delivery failed, retries exhausted", fields...)
			return result
		}
		c.logger.Warn("Conversion delivery attempt failed, retrying", fields...)

		delay := backoffDelay(attempt, c.backoffBase, c.backoffMax)
		if status != nil && *status == http.StatusTooManyRequests {
			if parsed, ok := ParseRetryAfter(retryAfter); ok {
				delay = parsed
			}
		}
		if !sleep(ctx, delay) {
			c.logger.Warn("Delivery cancelled while waiting to retry",
				zap.String("event_name", payload.EventName),
			)
			return result
		}
	}

	return result
}

// post performs one HTTP attempt. Any status code is returned as an
// observed response; only transport-level problems produce an error.
func (c *Client) post(ctx context.Context, body []byte) (*int, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if readErr != nil {
		c.logger.Warn("Failed to read ingestion API response body",
			zap.Error(readErr),
		)
	}

	status := resp.StatusCode
	return &status, string(respBody), resp.Header.Get("Retry-After"), nil
}

// sleep waits for the delay or until the context is done. Reports
// false when cancelled.
func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
