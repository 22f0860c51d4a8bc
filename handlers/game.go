// handlers/game.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/games"
	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/services"
)

func SetupGameRoutes(public, secured, admin fiber.Router, gameService *services.GameService) {
	// 🔓 Catalog, gateway auth only
	public.Get("/games", func(c *fiber.Ctx) error {
		list, err := gameService.ListGames(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"games": list})
	})

	secured.Post("/games/:id/spin", func(c *fiber.Ctx) error {
		var body struct {
			Currency models.Currency `json:"currency"`
			Bet      money.Amount    `json:"bet"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		res, err := gameService.Spin(c.UserContext(), middleware.UserID(c), c.Params("id"), body.Currency, body.Bet)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	secured.Post("/games/:id/dice", func(c *fiber.Ctx) error {
		var body struct {
			Currency  models.Currency `json:"currency"`
			Bet       money.Amount    `json:"bet"`
			Target    float64         `json:"target"`
			Direction games.Direction `json:"direction"`
		}
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err)
		}
		res, err := gameService.RollDice(c.UserContext(), middleware.UserID(c), c.Params("id"),
			body.Currency, body.Bet, body.Target, body.Direction)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	admin.Post("/games", func(c *fiber.Ctx) error {
		var in services.CreateGameInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		g, err := gameService.CreateGame(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(g)
	})
}
