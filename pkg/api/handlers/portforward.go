package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Merlicne/k8s-manager/pkg/portforward"
)

// StartPortForward spawns a kubectl port-forward for one service and
// records it under its local port.
func (h *Handlers) StartPortForward(c *fiber.Ctx) error {
	var req portforward.StartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	info, err := h.pf.Start(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(info)
}

// ListPortForwards returns a snapshot of every active forward.
func (h *Handlers) ListPortForwards(c *fiber.Ctx) error {
	return c.JSON(h.pf.List())
}

// StopPortForward kills the forward bound to :local_port.
func (h *Handlers) StopPortForward(c *fiber.Ctx) error {
	localPort, err := c.ParamsInt("local_port")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid local_port"})
	}
	if err := h.pf.Stop(localPort); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Stopped"})
}
