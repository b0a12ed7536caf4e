package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"voltmart/internal/config"
	"voltmart/internal/http/handlers"
	applog "voltmart/internal/log"
	"voltmart/internal/notify"
	"voltmart/internal/repos"
	"voltmart/internal/services"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Notification fan-out; unset endpoints leave channels disabled.
	var channels []notify.Channel
	if ch := notify.NewEmailChannel(cfg.SMTPAddr, cfg.SMTPFrom); ch != nil {
		channels = append(channels, ch)
	}
	if ch := notify.NewSMSChannel(cfg.SMSGatewayURL); ch != nil {
		channels = append(channels, ch)
	}
	var forwarder notify.Forwarder
	if w := notify.NewWebhookForwarder(cfg.WebhookURL); w != nil {
		forwarder = w
	}
	notifier := notify.New(forwarder, channels...)
	defer notifier.Wait()

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "something went wrong, please try again",
			})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, notifier, authSvc)

	// Auth (login throttled)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	// Public API
	api := app.Group("/api/v1")
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.InventoryHandler.Check)

	// Orders & tickets
	api.Post("/orders", deps.OrderHandler.Place)
	api.Get("/orders/:id", deps.OrderHandler.View)
	api.Post("/tickets", deps.TicketHandler.Create)
	api.Get("/tickets/:id", deps.TicketHandler.View)
	api.Post("/tickets/:id/rating", deps.TicketHandler.Rate)

	// Technician actions; verification carries its own per-IP throttle on
	// top of the per-ticket lockout because the code space is small.
	tech := api.Group("/tech", handlers.RequireTechnician(authSvc))
	tech.Get("/jobs", deps.TechnicianHandler.Jobs)
	tech.Post("/tickets/:id/start", deps.TechnicianHandler.Start)
	tech.Post("/tickets/:id/verify", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.verify.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	}), deps.TechnicianHandler.VerifyCompletion)

	// Admin
	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/orders", deps.AdminHandler.Orders)
	admin.Post("/orders/:id/status", deps.AdminHandler.AdvanceOrder)
	admin.Post("/orders/:id/cancel", deps.AdminHandler.CancelOrder)
	admin.Get("/tickets", deps.AdminHandler.Tickets)
	admin.Post("/tickets/:id/assign", deps.AdminHandler.AssignTicket)
	admin.Post("/tickets/:id/cancel", deps.AdminHandler.CancelTicket)
	admin.Post("/tickets/:id/code", deps.AdminHandler.IssueCode)
	admin.Get("/technicians", deps.AdminHandler.Technicians)
	admin.Post("/technicians/:id/availability", deps.AdminHandler.SetTechnicianAvailability)
	admin.Post("/inventory", deps.AdminHandler.UpdateInventory)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
