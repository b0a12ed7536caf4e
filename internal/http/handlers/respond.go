package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"voltmart/internal/domain"
	applog "voltmart/internal/log"
)

// fail maps domain errors to HTTP statuses with messages safe to show.
// Inventory and transition conflicts surface as 409 so clients refresh
// instead of retrying blindly; verification failures stay generic.
func fail(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case domain.IsInsufficientStock(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "state has changed, refresh and retry"})
	case errors.Is(err, domain.ErrNotInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "ticket is not in progress"})
	case errors.Is(err, domain.ErrCodeMismatch):
		applog.Security(c, action+".code_mismatch", nil)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "verification failed"})
	case errors.Is(err, domain.ErrVerificationLocked):
		applog.Security(c, action+".locked", nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
	case errors.Is(err, domain.ErrCodeAlreadyIssued):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "completion code already issued"})
	}
	applog.Error(c, action, err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong, please try again"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
