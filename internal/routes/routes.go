package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/handlers"
)

// SetupRoutes configures all application routes with dependencies
func SetupRoutes(app *fiber.App, webhookHandler *handlers.WebhookHandler) {
	app.Get("/health", handlers.HealthCheck)
	app.Post("/webhook", webhookHandler.HandleWebhook)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
