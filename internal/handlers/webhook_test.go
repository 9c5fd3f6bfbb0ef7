package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/config"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/conversion"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/delivery"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/handlers"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/mapper"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/provider"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/relay"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/routes"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/signature"
)

const webhookSecret = "whsec_test"

func testConfig(stripeURL, fbURL string) *config.Config {
	return &config.Config{
		Stripe: config.StripeConfig{
			SecretKey:          "sk_test",
			WebhookSecret:      webhookSecret,
			APIBaseURL:         stripeURL,
			SignatureTolerance: 5 * time.Minute,
		},
		Facebook: config.FacebookConfig{
			PixelID:        "123456",
			AccessToken:    "token",
			EventSourceURL: "https://shop.example.com",
			APIVersion:     "v18.0",
			APIBaseURL:     fbURL,
		},
		Delivery: config.DeliveryConfig{
			MaxAttempts: 2,
			Timeout:     2 * time.Second,
			BackoffBase: time.Millisecond,
			BackoffMax:  5 * time.Millisecond,
		},
	}
}

func newTestApp(cfg *config.Config) *fiber.App {
	log := zap.NewNop()
	providerClient := provider.NewHTTPClient(cfg.Stripe.APIBaseURL, cfg.Stripe.SecretKey, log)
	eventMapper := mapper.New(providerClient, log)
	deliveryClient := delivery.NewClient(cfg.Facebook, cfg.Delivery, log)
	eventRelay := relay.New(eventMapper, deliveryClient, log)

	app := fiber.New()
	routes.SetupRoutes(app, handlers.NewWebhookHandler(cfg, eventRelay, log))
	return app
}

func signedRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature.Sign(body, webhookSecret, time.Now()))
	return req
}

func TestWebhookUnrecognizedEventAcknowledged(t *testing.T) {
	var downstreamCalls int32
	fbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downstreamCalls, 1)
		w.Write([]byte(`{}`))
	}))
	defer fbServer.Close()

	app := newTestApp(testConfig("http://127.0.0.1:0", fbServer.URL))

	body := []byte(`{"id":"evt_1","type":"payout.paid","data":{"object":{"id":"po_1"}}}`)
	resp, err := app.Test(signedRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, true, decoded["received"])
	assert.Zero(t, atomic.LoadInt32(&downstreamCalls))
}

func TestWebhookInvalidSignatureRejected(t *testing.T) {
	var downstreamCalls int32
	fbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downstreamCalls, 1)
	}))
	defer fbServer.Close()

	app := newTestApp(testConfig("http://127.0.0.1:0", fbServer.URL))

	body := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signature.Sign(body, "whsec_wrong", time.Now()))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "signature")
	assert.Zero(t, atomic.LoadInt32(&downstreamCalls))
}

func TestWebhookMissingSignatureHeader(t *testing.T) {
	app := newTestApp(testConfig("http://127.0.0.1:0", "http://127.0.0.1:0"))

	body := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookUnconfiguredInstance(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0", "http://127.0.0.1:0")
	cfg.Facebook.PixelID = ""
	cfg.Facebook.AccessToken = ""
	app := newTestApp(cfg)

	body := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)
	resp, err := app.Test(signedRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "FB_PIXEL_ID")
}

func TestWebhookCheckoutCompletedEndToEnd(t *testing.T) {
	stripeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		w.Write([]byte(`{
			"id": "cs_1",
			"amount_total": 2500,
			"currency": "usd",
			"payment_intent": "pi_1",
			"customer_details": {"email": "A@Example.com"},
			"line_items": {"data": [{"quantity": 2, "price": {"product": "prod_a"}}]}
		}`))
	}))
	defer stripeServer.Close()

	var captured []byte
	fbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"events_received":1}`))
	}))
	defer fbServer.Close()

	app := newTestApp(testConfig(stripeServer.URL, fbServer.URL))

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	resp, err := app.Test(signedRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotEmpty(t, captured)
	var env struct {
		Data []conversion.Payload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(captured, &env))
	require.Len(t, env.Data, 1)

	sent := env.Data[0]
	assert.Equal(t, conversion.EventPurchase, sent.EventName)
	assert.Equal(t, "website", sent.ActionSource)
	assert.Equal(t, "cs_1", sent.EventID)
	assert.Equal(t, "https://shop.example.com", sent.EventSourceURL)

	require.NotNil(t, sent.CustomData)
	require.NotNil(t, sent.CustomData.Value)
	assert.Equal(t, 25.0, *sent.CustomData.Value)
	assert.Equal(t, "USD", sent.CustomData.Currency)
	assert.Equal(t, "pi_1", sent.CustomData.OrderID)
	assert.Equal(t, []string{"prod_a"}, sent.CustomData.ContentIDs)

	require.NotNil(t, sent.UserData)
	require.Len(t, sent.UserData.Em, 1)
	assert.Equal(t, conversion.HashIdentifier("a@example.com"), sent.UserData.Em[0])
	// The raw email never appears in the outbound payload.
	assert.NotContains(t, string(captured), "Example.com")
}

func TestWebhookFetchFailureStillAcknowledged(t *testing.T) {
	stripeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer stripeServer.Close()

	var downstreamCalls int32
	fbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downstreamCalls, 1)
	}))
	defer fbServer.Close()

	app := newTestApp(testConfig(stripeServer.URL, fbServer.URL))

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	resp, err := app.Test(signedRequest(body), -1)
	require.NoError(t, err)

	// Re-fetch failed, event aborted, but the sender still gets 200
	// to avoid a retry storm.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, atomic.LoadInt32(&downstreamCalls))
}

func TestWebhookDeliveryFailureStillAcknowledged(t *testing.T) {
	fbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer fbServer.Close()

	app := newTestApp(testConfig("http://127.0.0.1:0", fbServer.URL))

	body := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1","email":"x@y.z"}}}`)
	resp, err := app.Test(signedRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAlwaysOK(t *testing.T) {
	cfg := &config.Config{}
	app := newTestApp(cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}
