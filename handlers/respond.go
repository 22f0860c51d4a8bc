// handlers/respond.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"sweeps-settlement-system/services"
)

// respondError maps the service error taxonomy onto HTTP statuses. Storage
// faults are logged and hidden from the caller.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validation *services.ValidationError
		conflict   *services.ConflictError
		missing    *services.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Msg})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflict.Msg})
	case errors.As(err, &missing):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": missing.Error()})
	case errors.Is(err, services.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	default:
		log.WithError(err).WithFields(log.Fields{"method": c.Method(), "path": c.Path()}).Error("❌ request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error, please retry"})
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &services.ValidationError{Msg: "invalid request body"}
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}
