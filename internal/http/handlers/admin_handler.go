package handlers

import (
	"strconv"

	applog "voltmart/internal/log"
	"voltmart/internal/services"
	"voltmart/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Order    *services.OrderService
	Dispatch *services.DispatchService
	Inv      *services.InventoryService
	Techs    *services.TechnicianService
	Verify   *services.VerifyService
}

// GET /admin/orders
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	ords, err := h.Order.Orders.ListLatest(100)
	if err != nil {
		return fail(c, "admin.orders.list", err)
	}
	return c.JSON(fiber.Map{"orders": ords})
}

// POST /admin/orders/:id/status advances one guarded step.
func (h *AdminHandler) AdvanceOrder(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid order id")
	}
	to, err := h.Order.Advance(id)
	if err != nil {
		return fail(c, "admin.orders.advance", err)
	}
	applog.Audit(c, "admin.orders.advance", map[string]any{"order_id": id, "status": to})
	return c.JSON(fiber.Map{"order_id": id, "status": to})
}

// POST /admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid order id")
	}
	if err := h.Order.Cancel(id); err != nil {
		return fail(c, "admin.orders.cancel", err)
	}
	applog.Audit(c, "admin.orders.cancel", map[string]any{"order_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /admin/tickets
func (h *AdminHandler) Tickets(c *fiber.Ctx) error {
	tickets, err := h.Dispatch.Tickets.ListLatest(100)
	if err != nil {
		return fail(c, "admin.tickets.list", err)
	}
	out := make([]fiber.Map, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, fiber.Map{
			"ticket_id":     t.ID,
			"order_id":      t.OrderID,
			"status":        t.Status,
			"technician_id": t.TechnicianID,
			"description":   t.Description,
			"requested_at":  t.RequestedAt,
			"created_at":    t.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"tickets": out})
}

// POST /admin/tickets/:id/assign binds a technician to the ticket.
func (h *AdminHandler) AssignTicket(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var body struct {
		TechnicianID string `json:"technician_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	tid, ok := validate.ID(body.TechnicianID)
	if !ok {
		return badRequest(c, "invalid technician id")
	}
	if err := h.Dispatch.Assign(id, tid); err != nil {
		return fail(c, "admin.tickets.assign", err)
	}
	applog.Audit(c, "admin.tickets.assign", map[string]any{"ticket_id": id, "technician_id": tid})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /admin/tickets/:id/cancel
func (h *AdminHandler) CancelTicket(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	if err := h.Dispatch.Cancel(id); err != nil {
		return fail(c, "admin.tickets.cancel", err)
	}
	applog.Audit(c, "admin.tickets.cancel", map[string]any{"ticket_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /admin/tickets/:id/code issues a completion code for a ticket
// that has none (imported records). Reissue is refused.
func (h *AdminHandler) IssueCode(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	code, err := h.Verify.GenerateCode(id)
	if err != nil {
		return fail(c, "admin.tickets.issue_code", err)
	}
	applog.Audit(c, "admin.tickets.issue_code", map[string]any{"ticket_id": id})
	// Shown once; relay it to the customer out of band.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ticket_id": id, "completion_code": code})
}

// GET /admin/technicians
func (h *AdminHandler) Technicians(c *fiber.Ctx) error {
	techs, err := h.Techs.List()
	if err != nil {
		return fail(c, "admin.technicians.list", err)
	}
	return c.JSON(fiber.Map{"technicians": techs})
}

// POST /admin/technicians/:id/availability
func (h *AdminHandler) SetTechnicianAvailability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid technician id")
	}
	var body struct {
		Availability string `json:"availability"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	switch body.Availability {
	case "AVAILABLE", "BUSY", "OFF_DUTY":
	default:
		return badRequest(c, "availability must be AVAILABLE, BUSY or OFF_DUTY")
	}
	if err := h.Techs.SetAvailability(id, body.Availability); err != nil {
		return fail(c, "admin.technicians.availability", err)
	}
	applog.Audit(c, "admin.technicians.availability", map[string]any{"technician_id": id, "availability": body.Availability})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /admin/inventory sets the absolute stock for a SKU.
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	var body struct {
		SKU   string `json:"sku"`
		Name  string `json:"name"`
		Price string `json:"price"`
		Qty   int    `json:"qty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	sku, ok := validate.ID(body.SKU)
	price, perr := strconv.ParseFloat(body.Price, 64)
	if !ok || body.Name == "" || perr != nil || price < 0 || body.Qty < 0 {
		return badRequest(c, "invalid input")
	}
	if err := h.Inv.Restock(sku, body.Name, price, body.Qty); err != nil {
		return fail(c, "admin.inventory.save", err)
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"sku": sku, "qty": body.Qty})
	return c.JSON(fiber.Map{"ok": true})
}
