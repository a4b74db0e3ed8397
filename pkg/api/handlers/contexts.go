package handlers

import "github.com/gofiber/fiber/v2"

// ListContexts returns every context name known to the loaded
// kubeconfig. Failures stay at HTTP 200 with an "error" body, matching
// the legacy envelope the rest of the /api surface uses.
func (h *Handlers) ListContexts(c *fiber.Ctx) error {
	contexts, err := h.factory.ListContexts()
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"contexts": contexts})
}
