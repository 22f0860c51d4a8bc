// handlers/player.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/services"
)

func SetupPlayerRoutes(secured, admin fiber.Router, players *services.PlayerService) {
	secured.Post("/players/register", func(c *fiber.Ctx) error {
		var body struct {
			Username     string `json:"username"`
			ReferralCode string `json:"referral_code"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		p, err := players.Register(c.UserContext(), middleware.UserID(c), body.Username, body.ReferralCode)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	secured.Get("/players/me", func(c *fiber.Ctx) error {
		p, err := players.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	secured.Get("/players/me/history", func(c *fiber.Ctx) error {
		rows, err := players.History(c.UserContext(), middleware.UserID(c), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"transactions": rows})
	})

	secured.Get("/coin-packages", func(c *fiber.Ctx) error {
		pkgs, err := players.ListCoinPackages(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"packages": pkgs})
	})

	secured.Post("/coin-packages/:id/purchase", func(c *fiber.Ctx) error {
		var body struct {
			PaymentRef string `json:"payment_ref"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		p, err := players.PurchaseCoins(c.UserContext(), middleware.UserID(c), c.Params("id"), body.PaymentRef)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	// 🔒 Admin
	admin.Post("/coin-packages", func(c *fiber.Ctx) error {
		var in services.CoinPackageInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		pkg, err := players.CreateCoinPackage(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(pkg)
	})

	admin.Patch("/players/:id/kyc", func(c *fiber.Ctx) error {
		var body struct {
			Status models.KYCStatus `json:"status"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		p, err := players.SetKYCStatus(c.UserContext(), c.Params("id"), body.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	admin.Patch("/players/:id/status", func(c *fiber.Ctx) error {
		var body struct {
			Status models.PlayerStatus `json:"status"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		p, err := players.SetStatus(c.UserContext(), c.Params("id"), body.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	admin.Post("/players/:id/adjust", func(c *fiber.Ctx) error {
		var body struct {
			GC     money.Amount `json:"gc"`
			SC     money.Amount `json:"sc"`
			Reason string       `json:"reason"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		p, err := players.AdminAdjust(c.UserContext(), middleware.UserID(c), c.Params("id"), body.GC, body.SC, body.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	admin.Post("/rain", func(c *fiber.Ctx) error {
		var body struct {
			AmountSC   money.Amount `json:"amount_sc"`
			Recipients []string     `json:"recipients"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		res, err := players.Rain(c.UserContext(), middleware.UserID(c), body.AmountSC, body.Recipients)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})
}
