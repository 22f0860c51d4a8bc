// handlers/tournament.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/services"
)

func SetupTournamentRoutes(public, secured, admin fiber.Router, tournamentService *services.TournamentService) {
	// 🔓 Public
	public.Get("/tournaments", func(c *fiber.Ctx) error {
		list, err := tournamentService.List(c.UserContext(), models.TournamentStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tournaments": list})
	})
	public.Get("/tournaments/:id", func(c *fiber.Ctx) error {
		t, err := tournamentService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})
	public.Get("/tournaments/:id/leaderboard", func(c *fiber.Ctx) error {
		board, err := tournamentService.Leaderboard(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"leaderboard": board})
	})

	// 🔐 Players
	secured.Post("/tournaments/:id/join", func(c *fiber.Ctx) error {
		part, err := tournamentService.Join(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(part)
	})

	// 🔒 Admin
	admin.Post("/tournaments", func(c *fiber.Ctx) error {
		var in services.CreateTournamentInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		t, err := tournamentService.CreateTournament(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})
	admin.Post("/tournaments/sweep", func(c *fiber.Ctx) error {
		report, err := tournamentService.Sweep(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})
}
