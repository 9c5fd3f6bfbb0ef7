package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/config"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/conversion"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/event"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/metrics"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/relay"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/signature"
)

const signatureHeader = "Stripe-Signature"

// WebhookHandler is the boundary layer for inbound provider events.
type WebhookHandler struct {
	cfg    *config.Config
	relay  *relay.Relay
	logger *zap.Logger
}

func NewWebhookHandler(cfg *config.Config, eventRelay *relay.Relay, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:    cfg,
		relay:  eventRelay,
		logger: logger,
	}
}

// HandleWebhook handles POST /webhook. Once the signature verifies,
// the response is 200 {"received":true} no matter what happens
// downstream: a non-2xx here would trigger the sender's retry
// schedule and duplicate-process the same event.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	if err := h.cfg.ValidateRelay(); err != nil {
		h.logger.Error("Webhook received on unconfigured instance", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// The raw bytes exactly as received: any prior decoding would
	// invalidate the signature.
	raw := c.Body()
	header := c.Get(signatureHeader)

	if err := signature.Verify(raw, header, h.cfg.Stripe.WebhookSecret, h.cfg.Stripe.SignatureTolerance); err != nil {
		metrics.SignatureFailures.Inc()
		h.logger.Warn("Rejected webhook delivery", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	evt, err := event.Parse(raw)
	if err != nil {
		h.logger.Warn("Signed webhook body is not a valid event envelope", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	rc := conversion.RequestContext{
		ClientIP:  c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		SourceURL: h.cfg.Facebook.EventSourceURL,
	}

	// Sequential by design: the handler is held open through the
	// delivery retry loop, then acknowledges regardless of outcome.
	h.relay.Process(c.UserContext(), evt, rc)

	return c.JSON(fiber.Map{"received": true})
}
