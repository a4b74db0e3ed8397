package handlers

import "github.com/gofiber/fiber/v2"

// Health reports liveness only; it does not reach out to any cluster.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "message": "Server is running"})
}
