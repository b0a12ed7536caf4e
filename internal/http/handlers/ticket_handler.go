package handlers

import (
	"github.com/gofiber/fiber/v2"

	"voltmart/internal/domain"
	applog "voltmart/internal/log"
	"voltmart/internal/services"
	"voltmart/internal/validate"
)

type TicketHandler struct {
	Dispatch *services.DispatchService
	Verify   *services.VerifyService
	Techs    *services.TechnicianService
}

type createTicketBody struct {
	Customer    domain.Customer `json:"customer"`
	Description string          `json:"description"`
	RequestedAt string          `json:"requested_at"`
}

// Create books a standalone service visit (no order attached).
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	var body createTicketBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	name, ok := validate.Name(body.Customer.Name)
	if !ok {
		return badRequest(c, "name must be 1-40 characters")
	}
	email, ok := validate.Email(body.Customer.Email)
	if !ok {
		return badRequest(c, "invalid email")
	}
	body.Customer.Name, body.Customer.Email = name, email

	t, code, err := h.Dispatch.Create(body.Customer, body.Description, body.RequestedAt, "")
	if err != nil {
		return fail(c, "ticket.create", err)
	}
	applog.Audit(c, "ticket.create", map[string]any{"ticket_id": t.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ticket_id": t.ID,
		"status":    t.Status,
		// Shown once; the customer keeps it for the visit.
		"completion_code": code,
	})
}

// View exposes tracking fields only. The code hash, failure counters and
// lockout state never leave the store.
func (h *TicketHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, err := h.Dispatch.Get(id)
	if err != nil {
		return fail(c, "ticket.view", err)
	}
	out := fiber.Map{
		"ticket_id":    t.ID,
		"status":       t.Status,
		"description":  t.Description,
		"requested_at": t.RequestedAt,
		"created_at":   t.CreatedAt,
	}
	if t.TechnicianID != "" {
		out["technician_id"] = t.TechnicianID
	}
	if t.CompletedAt != "" {
		out["completed_at"] = t.CompletedAt
	}
	return c.JSON(out)
}

// Rate records the customer's star rating after a verified completion.
func (h *TicketHandler) Rate(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var body struct {
		Stars string `json:"stars"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	stars, ok := validate.Stars(body.Stars)
	if !ok {
		return badRequest(c, "stars must be 1-5")
	}
	if err := h.Techs.SubmitRating(id, stars); err != nil {
		return fail(c, "ticket.rate", err)
	}
	applog.Audit(c, "ticket.rate", map[string]any{"ticket_id": id, "stars": stars})
	return c.JSON(fiber.Map{"ok": true})
}
