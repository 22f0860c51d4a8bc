// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	localUserID = "user_id"
	localRoles  = "user_roles"

	RoleAdmin = "admin"
)

// UserContextMiddleware reads the identity the gateway attached to the
// request. Routes behind it require X-User-ID.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.WithField("path", c.Path()).Warn("❌ [USER_CTX] X-User-ID missing on secured route")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through the gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, strings.ToLower(r))
			}
		}

		c.Locals(localUserID, userID)
		c.Locals(localRoles, roles)

		log.WithFields(log.Fields{"user_id": userID, "roles": roles, "path": c.Path()}).Debug("👤 [USER_CTX]")
		return c.Next()
	}
}

// RequireRole rejects callers without role. It must run after
// UserContextMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasRole(c, role) {
			log.WithFields(log.Fields{"user_id": UserID(c), "role": role, "path": c.Path()}).
				Warn("🚫 [USER_CTX] role required")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": role + " role required"})
		}
		return c.Next()
	}
}

// UserID returns the caller id set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func HasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals(localRoles).([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
