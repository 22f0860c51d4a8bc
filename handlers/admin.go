// handlers/admin.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/config"
	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/services"
)

func SetupAdminRoutes(admin fiber.Router, settings *services.SettingsService, audit *services.AuditService) {
	admin.Get("/settings", func(c *fiber.Ctx) error {
		cur, err := settings.Current(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"settings": cur, "keys": config.SettingKeys()})
	})

	admin.Put("/settings/:key", func(c *fiber.Ctx) error {
		var body struct {
			Value string `json:"value"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		cur, err := settings.Update(c.UserContext(), middleware.UserID(c), c.Params("key"), body.Value)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"settings": cur})
	})

	admin.Post("/reconcile", func(c *fiber.Ctx) error {
		bad, err := audit.Reconcile(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"discrepancies": bad, "ok": len(bad) == 0})
	})
}
