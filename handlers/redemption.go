// handlers/redemption.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/services"
)

func SetupRedemptionRoutes(secured, admin fiber.Router, redemptions *services.RedemptionService) {
	secured.Post("/redemptions", func(c *fiber.Ctx) error {
		var body struct {
			AmountSC money.Amount `json:"amount_sc"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		req, balance, err := redemptions.Request(c.UserContext(), middleware.UserID(c), body.AmountSC)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": req, "balance": balance})
	})

	secured.Get("/redemptions", func(c *fiber.Ctx) error {
		list, err := redemptions.List(c.UserContext(), models.RedemptionStatus(c.Query("status")), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"requests": list})
	})

	admin.Get("/redemptions", func(c *fiber.Ctx) error {
		list, err := redemptions.List(c.UserContext(), models.RedemptionStatus(c.Query("status")), c.Query("player_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"requests": list})
	})

	admin.Post("/redemptions/:id/approve", func(c *fiber.Ctx) error {
		req, err := redemptions.Approve(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})

	admin.Post("/redemptions/:id/paid", func(c *fiber.Ctx) error {
		req, err := redemptions.MarkPaid(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})

	admin.Post("/redemptions/:id/reject", func(c *fiber.Ctx) error {
		var body struct {
			Note string `json:"note"`
		}
		// the note is optional, an empty body is fine
		_ = c.BodyParser(&body)
		req, err := redemptions.Reject(c.UserContext(), middleware.UserID(c), c.Params("id"), body.Note)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})
}
