package handlers

import (
	"github.com/gofiber/fiber/v2"

	"voltmart/internal/domain"
	applog "voltmart/internal/log"
	"voltmart/internal/services"
	"voltmart/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
}

type placeOrderBody struct {
	Items         []services.CartLine `json:"items"`
	Customer      domain.Customer     `json:"customer"`
	PaymentMethod string              `json:"payment_method"`
	Installation  bool                `json:"installation"`
	InstallNote   string              `json:"install_note"`
	RequestedAt   string              `json:"requested_at"`
}

// Place handles checkout: reserve stock, persist, optionally book the
// install visit. Insufficient stock comes back 409 with the SKU named.
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var body placeOrderBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body.Items) == 0 {
		return badRequest(c, "cart is empty")
	}
	name, ok := validate.Name(body.Customer.Name)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "name"})
		return badRequest(c, "name must be 1-40 characters")
	}
	email, ok := validate.Email(body.Customer.Email)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "email"})
		return badRequest(c, "invalid email")
	}
	if body.Customer.Phone != "" {
		if _, ok := validate.Phone(body.Customer.Phone); !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "phone"})
			return badRequest(c, "invalid phone")
		}
	}
	body.Customer.Name, body.Customer.Email = name, email

	res, err := h.Order.Place(services.PlaceRequest{
		Items:         body.Items,
		Customer:      body.Customer,
		PaymentMethod: body.PaymentMethod,
		Installation:  body.Installation,
		InstallNote:   body.InstallNote,
		RequestedAt:   body.RequestedAt,
	})
	if err != nil {
		if domain.IsInsufficientStock(err) {
			applog.Info(c, "order.place.out_of_stock", map[string]any{"error": err.Error()})
			return fail(c, "order.place", err)
		}
		applog.Security(c, "order.place.fail", map[string]any{"error": err.Error()})
		return fail(c, "order.place", err)
	}

	applog.Audit(c, "order.place", map[string]any{"order_id": res.OrderID, "total": res.Total, "ticket_id": res.TicketID})
	out := fiber.Map{"order_id": res.OrderID, "total": res.Total}
	if res.TicketID != "" {
		out["ticket_id"] = res.TicketID
		// Shown once at checkout; the customer keeps it for the visit.
		out["completion_code"] = res.CompletionCode
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid order id")
	}
	o, items, err := h.Order.Get(id)
	if err != nil {
		return fail(c, "order.view", err)
	}
	lines := make([]fiber.Map, 0, len(items))
	for _, it := range items {
		lines = append(lines, fiber.Map{"sku": it.SKU, "qty": it.Qty, "price": it.Price})
	}
	return c.JSON(fiber.Map{
		"order_id":       o.ID,
		"status":         o.Status,
		"total":          o.Total,
		"payment_method": o.PaymentMethod,
		"is_paid":        o.IsPaid,
		"created_at":     o.CreatedAt,
		"items":          lines,
	})
}
