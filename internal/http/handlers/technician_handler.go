package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "voltmart/internal/log"
	"voltmart/internal/services"
	"voltmart/internal/validate"
)

// TechnicianHandler serves the technician's own job actions. The
// technician id always comes from the session, never from the request.
type TechnicianHandler struct {
	Dispatch *services.DispatchService
	Verify   *services.VerifyService
}

func techID(c *fiber.Ctx) string {
	id, _ := c.Locals("technician_id").(string)
	return id
}

// Jobs lists the tickets bound to the logged-in technician.
func (h *TechnicianHandler) Jobs(c *fiber.Ctx) error {
	tickets, err := h.Dispatch.Tickets.ListByTechnician(techID(c))
	if err != nil {
		return fail(c, "technician.jobs", err)
	}
	out := make([]fiber.Map, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, fiber.Map{
			"ticket_id":    t.ID,
			"status":       t.Status,
			"description":  t.Description,
			"requested_at": t.RequestedAt,
		})
	}
	return c.JSON(fiber.Map{"tickets": out})
}

// Start acknowledges the job: ASSIGNED -> IN_PROGRESS.
func (h *TechnicianHandler) Start(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	if err := h.Dispatch.Start(id, techID(c)); err != nil {
		return fail(c, "ticket.start", err)
	}
	applog.Audit(c, "ticket.start", map[string]any{"ticket_id": id, "technician_id": techID(c)})
	return c.JSON(fiber.Map{"ok": true})
}

// VerifyCompletion closes the job with the customer's code. Rejections
// are generic on purpose.
func (h *TechnicianHandler) VerifyCompletion(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	code, ok := validate.Code(body.Code)
	if !ok {
		applog.Security(c, "ticket.verify.bad_format", map[string]any{"ticket_id": id})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "verification failed"})
	}
	if err := h.Verify.VerifyAndComplete(id, code); err != nil {
		return fail(c, "ticket.verify", err)
	}
	applog.Audit(c, "ticket.verify.success", map[string]any{"ticket_id": id, "technician_id": techID(c)})
	return c.JSON(fiber.Map{"ok": true, "status": "COMPLETED"})
}
