// handlers/ticket.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/services"
)

func SetupTicketRoutes(public, secured, admin fiber.Router, tickets *services.TicketService) {
	public.Get("/ticket-types", func(c *fiber.Ctx) error {
		list, err := tickets.ListTicketTypes(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"ticket_types": list})
	})

	secured.Post("/ticket-types/:id/purchase", func(c *fiber.Ctx) error {
		ticket, balance, err := tickets.Purchase(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ticket": ticket, "balance": balance})
	})

	secured.Get("/tickets", func(c *fiber.Ctx) error {
		list, err := tickets.List(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tickets": list})
	})

	secured.Post("/tickets/:id/reveal", func(c *fiber.Ctx) error {
		res, err := tickets.Reveal(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	secured.Post("/tickets/:id/claim", func(c *fiber.Ctx) error {
		res, balance, err := tickets.Claim(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"result": res, "balance": balance})
	})

	secured.Post("/tickets/:id/save", func(c *fiber.Ctx) error {
		res, err := tickets.Save(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	admin.Post("/ticket-types", func(c *fiber.Ctx) error {
		var in services.TicketTypeInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		tt, err := tickets.CreateTicketType(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tt)
	})
}
