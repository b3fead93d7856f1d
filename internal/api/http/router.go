package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-service/internal/api/http/handlers"
	"github.com/fieldops/maintenance-service/internal/auth"
	"github.com/fieldops/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Equipment      *handlers.EquipmentHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	app.Get("/equipment/code/:code", cfg.Equipment.GetByCode)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	equipment := protected.Group("/equipment")
	equipment.Post("", auth.RequireRole(domain.RoleAdmin, domain.RoleSupervisor), cfg.Equipment.Create)
	equipment.Get("/maintenance-due", auth.RequireRole(domain.RoleEngineer, domain.RoleSupervisor, domain.RoleAdmin), cfg.Equipment.MaintenanceDue)
	equipment.Get("/:id", cfg.Equipment.Get)
	equipment.Patch("/:id/status", auth.RequireRole(domain.RoleAdmin), cfg.Equipment.SetStatus)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transitions", cfg.Tickets.Transition)
	tickets.Post("/:id/service-reports", auth.RequireRole(domain.RoleEngineer), cfg.Tickets.SubmitReport)
	tickets.Get("/:id/service-reports", cfg.Tickets.ListReports)
	tickets.Post("/:id/verification", cfg.Tickets.Verify)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	protected.Patch("/users/:id/status", auth.RequireRole(domain.RoleAdmin), cfg.Users.SetUserStatus)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Users.ListNotifications)
	notifications.Post("/:id/read", cfg.Users.MarkNotificationRead)
}
