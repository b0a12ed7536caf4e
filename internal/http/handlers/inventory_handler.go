package handlers

import (
	"github.com/gofiber/fiber/v2"

	"voltmart/internal/services"
	"voltmart/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	sku, ok := validate.ID(c.Query("sku"))
	if !ok {
		return badRequest(c, "missing or invalid sku")
	}
	avail, err := h.Inv.CheckAvailability(sku)
	if err != nil {
		return fail(c, "availability.check", err)
	}
	return c.JSON(avail)
}
