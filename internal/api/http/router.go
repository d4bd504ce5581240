package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sync/internal/api/http/handlers"
	"github.com/spec-kit/support-sync/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Sync           *handlers.SyncHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	user := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	user.Post("", cfg.Tickets.CreateRequest)
	user.Get("/unified", cfg.Tickets.ListUnified)
	user.Post("/:id/notes", cfg.Tickets.AppendNote)
	user.Post("/:id/close", cfg.Tickets.CloseTicket)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/tickets/unified", cfg.AdminTickets.ListUnified)
	admin.Patch("/tickets/:id/status", cfg.AdminTickets.SetStatus)
	admin.Post("/tickets/:id/notes", cfg.AdminTickets.AppendNote)
	admin.Delete("/issues/:id", cfg.AdminTickets.RemoveIssue)
	admin.Post("/issues/:id/close-permanently", cfg.AdminTickets.CloseIssuePermanently)

	admin.Post("/sync/load", cfg.Sync.LoadCandidates)
	admin.Post("/sync/select", cfg.Sync.SelectSubset)
	admin.Post("/sync/run", cfg.Sync.RunSync)
	admin.Post("/sync/cancel", cfg.Sync.Cancel)
	admin.Post("/sync/retry", cfg.Sync.Retry)
	admin.Get("/sync/state", cfg.Sync.State)
}
