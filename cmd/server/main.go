package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/config"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/delivery"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/handlers"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/logger"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/mapper"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/provider"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/relay"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/routes"
)

func main() {
	if err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Logger

	// Load configuration once; it is immutable for the process
	// lifetime and injected into every component.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.ValidateRelay(); err != nil {
		// Not fatal: the health endpoint must work on an unconfigured
		// instance, and the webhook route reports 500 until fixed.
		logger.Warn("Relay is not fully configured", zap.Error(err))
	}

	// Wire the pipeline: provider re-fetch → mapper → delivery.
	providerClient := provider.NewHTTPClient(cfg.Stripe.APIBaseURL, cfg.Stripe.SecretKey, log)
	eventMapper := mapper.New(providerClient, log)
	deliveryClient := delivery.NewClient(cfg.Facebook, cfg.Delivery, log)
	eventRelay := relay.New(eventMapper, deliveryClient, log)
	webhookHandler := handlers.NewWebhookHandler(cfg, eventRelay, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Stripe FB Conversion Tracker",
		ServerHeader: "Fiber",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Stripe-Signature",
	}))

	// Setup routes
	routes.SetupRoutes(app, webhookHandler)

	// Start server in a goroutine
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
