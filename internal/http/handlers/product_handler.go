package handlers

import (
	"github.com/gofiber/fiber/v2"

	"voltmart/internal/repos"
)

type ProductHandler struct {
	Products *repos.ProductRepo
}

// List returns the active catalog for checkout UIs.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.Products.ListActive()
	if err != nil {
		return fail(c, "products.list", err)
	}
	out := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		out = append(out, fiber.Map{
			"sku":        p.SKU,
			"name":       p.Name,
			"unit_price": p.UnitPrice,
		})
	}
	return c.JSON(fiber.Map{"products": out})
}
