package handlers

import "github.com/gofiber/fiber/v2"

// HealthCheck handles the health check endpoint. It answers 200 "OK"
// regardless of configuration state: the relay has no stateful
// dependencies to probe.
func HealthCheck(c *fiber.Ctx) error {
	return c.SendString("OK")
}
