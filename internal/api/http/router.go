package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Notifications  *handlers.NotificationsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	staff := auth.RequireStaff()
	tickets.Patch("/:id/status", staff, cfg.StaffTickets.UpdateStatus)
	tickets.Patch("/:id/priority", staff, cfg.StaffTickets.UpdatePriority)
	tickets.Post("/:id/assign", staff, cfg.StaffTickets.Assign)
	tickets.Post("/:id/auto-assign", staff, cfg.StaffTickets.AutoAssign)

	api.Get("/notifications", cfg.Notifications.List)
	api.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/active", cfg.Admin.SetUserActive)

	admin.Post("/assignment-rules", cfg.Admin.CreateAssignmentRule)
	admin.Get("/assignment-rules", cfg.Admin.ListAssignmentRules)
	admin.Get("/assignment-rules/:id", cfg.Admin.GetAssignmentRule)
	admin.Put("/assignment-rules/:id", cfg.Admin.UpdateAssignmentRule)
	admin.Patch("/assignment-rules/:id/toggle", cfg.Admin.ToggleAssignmentRule)
	admin.Delete("/assignment-rules/:id", cfg.Admin.DeleteAssignmentRule)

	admin.Post("/escalation-rules", cfg.Admin.CreateEscalationRule)
	admin.Get("/escalation-rules", cfg.Admin.ListEscalationRules)
	admin.Get("/escalation-rules/:id", cfg.Admin.GetEscalationRule)
	admin.Put("/escalation-rules/:id", cfg.Admin.UpdateEscalationRule)
	admin.Patch("/escalation-rules/:id/toggle", cfg.Admin.ToggleEscalationRule)
	admin.Delete("/escalation-rules/:id", cfg.Admin.DeleteEscalationRule)

	admin.Post("/sla-policies", cfg.Admin.CreateSLAPolicy)
	admin.Get("/sla-policies", cfg.Admin.ListSLAPolicies)
	admin.Put("/sla-policies/:id", cfg.Admin.UpdateSLAPolicy)
	admin.Delete("/sla-policies/:id", cfg.Admin.DeleteSLAPolicy)

	admin.Post("/teams", cfg.Admin.CreateTeam)
	admin.Get("/teams", cfg.Admin.ListTeams)
	admin.Put("/teams/:id", cfg.Admin.UpdateTeam)
	admin.Delete("/teams/:id", cfg.Admin.DeleteTeam)
	admin.Post("/teams/:id/members", cfg.Admin.AddTeamMember)
	admin.Delete("/teams/:id/members/:userId", cfg.Admin.RemoveTeamMember)

	admin.Post("/escalations/run", cfg.Admin.RunEscalations)
	admin.Get("/metrics", metricsHandler(cfg.Metrics))
}
