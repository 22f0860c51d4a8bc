// handlers/routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/notify"
	"sweeps-settlement-system/services"
)

// Services bundles what the HTTP layer talks to.
type Services struct {
	Players     *services.PlayerService
	Games       *services.GameService
	Tickets     *services.TicketService
	Tournaments *services.TournamentService
	Redemptions *services.RedemptionService
	Settings    *services.SettingsService
	Audit       *services.AuditService
	Hub         *notify.Hub
}

// SetupRoutes mounts public catalog routes at the root, player routes under
// /s and admin routes under /s/admin. The gateway token is checked by the
// caller for every route.
func SetupRoutes(app *fiber.App, svc Services) {
	secured := app.Group("/s", middleware.UserContextMiddleware())
	admin := secured.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))

	SetupPlayerRoutes(secured, admin, svc.Players)
	SetupGameRoutes(app, secured, admin, svc.Games)
	SetupTicketRoutes(app, secured, admin, svc.Tickets)
	SetupTournamentRoutes(app, secured, admin, svc.Tournaments)
	SetupRedemptionRoutes(secured, admin, svc.Redemptions)
	SetupAdminRoutes(admin, svc.Settings, svc.Audit)
	if svc.Hub != nil {
		secured.Get("/stream", StreamEvents(svc.Hub))
	}
}
